package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/config"
)

// NewServer wraps the router in an http.Server. WriteTimeout stays zero so
// event streams and sockets are not cut off.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
