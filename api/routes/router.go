package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/feastflow-backend/api/controllers"
	groupcontrollers "github.com/angelmondragon/feastflow-backend/api/controllers/groups"
	ordercontrollers "github.com/angelmondragon/feastflow-backend/api/controllers/orders"
	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/internal/groups"
	"github.com/angelmondragon/feastflow-backend/internal/orders"
	"github.com/angelmondragon/feastflow-backend/pkg/config"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/angelmondragon/feastflow-backend/pkg/metrics"
	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
	"github.com/angelmondragon/feastflow-backend/pkg/redis"
)

// Deps bundles what the router needs. Nil Redis disables idempotency replay,
// nil DB drops the database readiness probe.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Orders      orders.Service
	Groups      groups.Service
	Hub         *pubsub.Hub
	DB          controllers.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}
	var idempotencyStore redis.IdempotencyStore
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
		idempotencyStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	staff := []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleRestaurant}
	upgrader := groupcontrollers.NewUpgrader(cfg.App.CORSOrigins)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())

		// guests may order and track
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))
			r.Post("/orders", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/orders/{code}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))
			r.Get("/me", controllers.WhoAmI())

			anyStaff := middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleRestaurant, enums.ActorRoleDelivery)
			r.With(anyStaff).Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/events", ordercontrollers.Events(deps.Hub, cfg.Events.HeartbeatInterval, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleDelivery, enums.ActorRoleAdmin)).
				Get("/orders/available/list", ordercontrollers.Available(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, staff...)).
				Put("/orders/{code}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleDelivery)).
				Post("/orders/{code}/assign", ordercontrollers.Assign(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, staff...)).
				Post("/orders/{code}/accept-restaurant", ordercontrollers.AcceptRestaurant(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, staff...)).
				Post("/orders/{code}/reject-restaurant", ordercontrollers.RejectRestaurant(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, staff...)).
				Post("/orders/{code}/ready-for-pickup", ordercontrollers.ReadyForPickup(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
				Post("/orders/{code}/reassign-driver", ordercontrollers.Reassign(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleDelivery, enums.ActorRoleAdmin)).
				Post("/orders/{code}/deliver", ordercontrollers.Deliver(deps.Orders, logg))

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", groupcontrollers.Create(deps.Groups, logg))
				r.Route("/{code}", func(r chi.Router) {
					r.Get("/", groupcontrollers.Detail(deps.Groups, logg))
					r.Get("/ws", groupcontrollers.Socket(deps.Groups, deps.Hub, upgrader, logg))
					r.Post("/join", groupcontrollers.Join(deps.Groups, logg))
					r.Post("/items", groupcontrollers.AddItem(deps.Groups, logg))
					r.Put("/items/{itemId}", groupcontrollers.UpdateItem(deps.Groups, logg))
					r.Delete("/items/{itemId}", groupcontrollers.RemoveItem(deps.Groups, logg))
					r.Post("/payment-mode", groupcontrollers.SetPaymentMode(deps.Groups, logg))
					r.Post("/checkout", groupcontrollers.Checkout(deps.Groups, logg))
					r.Post("/cancel", groupcontrollers.Cancel(deps.Groups, logg))
				})
			})
		})
	})

	return r
}
