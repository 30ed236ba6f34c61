package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelarsolis/expresspay-backend/api/controllers"
	"github.com/avelarsolis/expresspay-backend/api/middleware"
	checkoutsvc "github.com/avelarsolis/expresspay-backend/internal/checkout"
	paymentsvc "github.com/avelarsolis/expresspay-backend/internal/payments"
	"github.com/avelarsolis/expresspay-backend/pkg/config"
	"github.com/avelarsolis/expresspay-backend/pkg/db"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
	"github.com/avelarsolis/expresspay-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	checkoutService checkoutsvc.Service,
	paymentsService paymentsvc.Service,
	registry *prometheus.Registry,
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

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Browser-facing express-checkout legs. Storefront links and forms hit
	// /express with either verb; the processor calls back on /confirm and
	// /cancel, which also accept both.
	r.Route("/paypal", func(r chi.Router) {
		r.Get("/express", controllers.ExpressBegin(checkoutService, logg))
		r.Post("/express", controllers.ExpressBegin(checkoutService, logg))
		r.Get("/confirm", controllers.ExpressConfirm(checkoutService, logg))
		r.Post("/confirm", controllers.ExpressConfirm(checkoutService, logg))
		r.Get("/cancel", controllers.ExpressCancel(checkoutService, logg))
		r.Post("/cancel", controllers.ExpressCancel(checkoutService, logg))
	})

	// Merchant back-office API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/{paymentId}/credit", controllers.PaymentCredit(paymentsService, logg))
	})

	return r
}
