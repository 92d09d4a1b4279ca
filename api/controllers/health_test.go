package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/feastflow-backend/pkg/auth"
	"github.com/angelmondragon/feastflow-backend/pkg/config"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

var testConfig = &config.Config{App: config.AppConfig{Env: "test"}}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get(envHeader))
	require.JSONEq(t, `{"data":{"status":"live"}}`, resp.Body.String())
}

func TestHealthReadyAllHealthy(t *testing.T) {
	deps := map[string]Pinger{"db": stubPinger{}, "redis": nil}
	resp := httptest.NewRecorder()
	HealthReady(testConfig, nil, deps).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"data":{"status":"ready","checks":{"db":"ok"}}}`, resp.Body.String())
}

func TestHealthReadyReportsFailure(t *testing.T) {
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("connection refused")}}
	resp := httptest.NewRecorder()
	HealthReady(testConfig, nil, deps).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), "DEPENDENCY_ERROR")
}

func TestWhoAmI(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), pkgAuth.Actor{ID: "staff-1", Role: enums.ActorRoleRestaurant, RestaurantID: "r1"}))
	resp := httptest.NewRecorder()
	WhoAmI().ServeHTTP(resp, req)
	require.JSONEq(t, `{"data":{"userId":"staff-1","role":"restaurant","restaurantId":"r1"}}`, resp.Body.String())
}
