package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/feastflow-backend/api/responses"
	"github.com/angelmondragon/feastflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
)

const (
	envHeader    = "X-FeastFlow-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is any dependency with a connectivity probe.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every configured dependency; nil entries are skipped so
// the memory backend without Redis still reports ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				failed[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
