package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)

	m.IncPublished("orders", "order_created")
	m.IncPublished("group:ABC123", "group_updated")
	m.AddDelivered("orders", 3)
	m.IncDropped("orders")
	m.SubscriberAdded("group:ABC123")
	m.SubscriberAdded("group:XYZ999")
	m.SubscriberRemoved("group:ABC123")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchValue(mfs, "events_published_total", map[string]string{"topic": "group", "type": "group_updated"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchValue(mfs, "events_delivered_total", map[string]string{"topic": "orders"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = fetchValue(mfs, "events_dropped_total", map[string]string{"topic": "orders"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchValue(mfs, "events_subscribers", map[string]string{"topic": "group"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *EventMetrics
	m.IncPublished("orders", "x")
	m.SubscriberAdded("orders")

	unregistered := NewEventMetrics(nil)
	unregistered.IncDropped("orders")

	var h *HTTPMetrics
	h.Observe("GET", "/x", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe("POST", "/api/v1/orders", 201, 5*time.Millisecond)
	h.Observe("POST", "/api/v1/orders", 201, 7*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got, err := fetchValue(mfs, "http_requests_total", map[string]string{"method": "POST", "route": "/api/v1/orders", "status": "201"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestTopicKind(t *testing.T) {
	assert.Equal(t, "group", TopicKind("group:ABC123"))
	assert.Equal(t, "orders", TopicKind("orders"))
	assert.Equal(t, "unknown", TopicKind(""))
}

func fetchValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !matchesLabels(metric.GetLabel(), labels) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue(), nil
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue(), nil
			}
		}
		return 0, fmt.Errorf("metric %q has no series for %v", name, labels)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
