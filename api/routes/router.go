package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amelbouzid/karakou-backend/api/controllers"
	"github.com/amelbouzid/karakou-backend/api/middleware"
	"github.com/amelbouzid/karakou-backend/internal/confirmation"
	"github.com/amelbouzid/karakou-backend/internal/delivery"
	"github.com/amelbouzid/karakou-backend/internal/orders"
	"github.com/amelbouzid/karakou-backend/internal/tracking"
	"github.com/amelbouzid/karakou-backend/internal/views"
	"github.com/amelbouzid/karakou-backend/pkg/config"
	"github.com/amelbouzid/karakou-backend/pkg/db"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
	"github.com/amelbouzid/karakou-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ordersSvc orders.Service,
	confirmationSvc confirmation.Service,
	deliverySvc delivery.Service,
	trackingSvc tracking.Service,
	viewsSvc views.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Post("/orders", controllers.Checkout(ordersSvc, logg))
		r.Get("/orders/lookup", controllers.OrderLookup(ordersSvc, trackingSvc, logg))
		r.Get("/tariffs", controllers.TariffList(ordersSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(ordersSvc, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireConfirmAccess(logg))
				r.Patch("/", controllers.OrderEdit(ordersSvc, logg))
				r.Post("/attempts", controllers.RecordAttempt(confirmationSvc, logg))
				r.Post("/confirm", controllers.ConfirmOrder(confirmationSvc, logg))
				r.Post("/delay", controllers.DelayOrder(confirmationSvc, logg))
				r.Post("/requeue", controllers.RequeueOrder(confirmationSvc, logg))
				r.Post("/double-order", controllers.FlagDoubleOrder(confirmationSvc, logg))
				r.Post("/cancel", controllers.CancelOrder(confirmationSvc, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireDeliverAccess(logg))
				r.Put("/assignment", controllers.AssignDelivery(deliverySvc, logg))
				r.Post("/ready", controllers.MarkReady(deliverySvc, logg))
				r.Post("/handoff", controllers.Handoff(deliverySvc, logg))
				r.Post("/reconcile", controllers.ReconcileOrder(trackingSvc, logg))
			})
		})

		r.Route("/queues", func(r chi.Router) {
			r.Get("/confirmation", controllers.ConfirmationQueue(viewsSvc, logg))
			r.Get("/delivery", controllers.DeliveryQueue(viewsSvc, logg))
		})

		r.Get("/stats/wilayas", controllers.WilayaStats(viewsSvc, logg))
	})

	return r
}
