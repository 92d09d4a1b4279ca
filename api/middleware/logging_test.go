package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/feastflow-backend/pkg/metrics"
)

func TestLoggingRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Logging(nil, httpMetrics))
	r.Get("/api/v1/orders/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-1", nil))
	require.Equal(t, http.StatusTeapot, resp.Code)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	labels := map[string]string{}
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		for _, pair := range mf.GetMetric()[0].GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
	}
	require.Equal(t, "/api/v1/orders/{code}", labels["route"])
	require.Equal(t, "418", labels["status"])
}

func TestStatusRecorderFlushes(t *testing.T) {
	resp := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: resp}

	_, err := rec.Write([]byte("data: hi\n\n"))
	require.NoError(t, err)
	rec.Flush()

	require.Equal(t, http.StatusOK, rec.status)
	require.True(t, resp.Flushed)
}

func TestStatusRecorderHijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rec.Hijack()
	require.Error(t, err)
}
