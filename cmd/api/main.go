package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/feastflow-backend/api"
	"github.com/angelmondragon/feastflow-backend/api/controllers"
	"github.com/angelmondragon/feastflow-backend/api/routes"
	"github.com/angelmondragon/feastflow-backend/internal/groups"
	"github.com/angelmondragon/feastflow-backend/internal/orders"
	"github.com/angelmondragon/feastflow-backend/pkg/config"
	"github.com/angelmondragon/feastflow-backend/pkg/db"
	"github.com/angelmondragon/feastflow-backend/pkg/instance"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/angelmondragon/feastflow-backend/pkg/metrics"
	"github.com/angelmondragon/feastflow-backend/pkg/migrate"
	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
	"github.com/angelmondragon/feastflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instanceID := instance.GetID()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instanceID,
		"store":    cfg.Store.Backend,
		"relay":    cfg.Events.Relay,
	})

	var closers []func() error

	var (
		orderStore orders.Store = orders.NewMemoryStore()
		roomStore  groups.Store = groups.NewMemoryStore()
		dbPinger   controllers.Pinger
	)
	if cfg.Store.UsesDatabase() {
		dbClient, err := db.New(ctx, cfg.DB, cfg.Features.UseSQLite, logg)
		requireResource(ctx, logg, "database", err)
		closers = append(closers, dbClient.Close)

		err = migrate.MaybeRun(ctx, cfg, logg, dbClient, &orders.Order{}, &groups.Room{})
		requireResource(ctx, logg, "migrations", err)

		orderStore = orders.NewGormStore(dbClient.DB())
		roomStore = groups.NewGormStore(dbClient.DB())
		dbPinger = dbClient
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		closers = append(closers, redisClient.Close)
	}

	var relay pubsub.Relay
	switch strings.ToLower(strings.TrimSpace(cfg.Events.Relay)) {
	case config.RelayRedis:
		relay, err = pubsub.NewRedisRelay(redisClient, cfg.Events.RelayChannel, logg)
		requireResource(ctx, logg, "redis relay", err)
	case config.RelayAMQP:
		relay, err = pubsub.DialAMQPRelay(cfg.AMQP.URL, cfg.AMQP.Exchange, logg)
		requireResource(ctx, logg, "amqp relay", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := pubsub.NewHub(pubsub.Options{
		Buffer:      cfg.Events.SubscriberBuffer,
		RelayBuffer: cfg.Events.RelayBuffer,
		InstanceID:  instanceID,
		Relay:       relay,
		Metrics:     metrics.NewEventMetrics(reg),
		Logger:      logg,
	})
	go func() {
		if err := hub.Run(ctx); err != nil {
			logg.Error(ctx, "event relay stopped", err)
		}
	}()

	orderSvc, err := orders.NewService(orderStore, hub, orders.Options{
		CodeRetries: cfg.Orders.CodeRetries,
		Logger:      logg,
	})
	requireResource(ctx, logg, "order service", err)

	groupSvc, err := groups.NewService(roomStore, hub, groups.Options{
		Codes: groups.CodePolicy{
			Length:         cfg.Groups.CodeLength,
			Retries:        cfg.Groups.CodeRetries,
			FallbackLength: cfg.Groups.CodeFallbackLength,
		},
		Logger: logg,
	})
	requireResource(ctx, logg, "group service", err)

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Orders:      orderSvc,
		Groups:      groupSvc,
		Hub:         hub,
		DB:          dbPinger,
		Redis:       redisClient,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	})

	server := api.NewServer(cfg, handler)
	serverErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Closing the hub ends open streams and the relay before the clients they use.
	errs := hub.Close()
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i]())
	}
	if errs != nil {
		logg.Error(ctx, "shutdown completed with errors", errs)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
