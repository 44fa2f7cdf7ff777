package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitsageai/payments-backend/api/controllers"
	webhookcontrollers "github.com/gitsageai/payments-backend/api/controllers/webhooks"
	"github.com/gitsageai/payments-backend/api/middleware"
	checkoutsvc "github.com/gitsageai/payments-backend/internal/checkout"
	creditssvc "github.com/gitsageai/payments-backend/internal/credits"
	verificationsvc "github.com/gitsageai/payments-backend/internal/verification"
	cashfreewebhook "github.com/gitsageai/payments-backend/internal/webhooks/cashfree"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	"github.com/gitsageai/payments-backend/pkg/config"
	"github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/logger"
	"github.com/gitsageai/payments-backend/pkg/metrics"
	"github.com/gitsageai/payments-backend/pkg/redis"
)

type RouterParams struct {
	Config              *config.Config
	Logger              *logger.Logger
	DBPinger            db.Pinger
	RedisClient         *redis.Client
	CashfreeClient      *cashfree.Client
	PaymentMetrics      *metrics.PaymentMetrics
	MetricsRegistry     prometheus.Gatherer
	CheckoutService     checkoutsvc.Service
	VerificationService verificationsvc.Service
	CreditsService      creditssvc.Service
	WebhookService      *cashfreewebhook.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisClient))
	})

	if p.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	// The provider posts here with its own signature scheme; bearer auth does
	// not apply.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/cashfree", webhookcontrollers.CashfreeWebhook(p.WebhookService, p.CashfreeClient, p.PaymentMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.RedisClient, logg))

		r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))
		r.Post("/verify-payment", controllers.VerifyPayment(p.VerificationService, logg))

		r.Route("/credits", func(r chi.Router) {
			r.Get("/", controllers.CreditBalance(p.CreditsService, logg))
			r.Post("/spend", controllers.SpendCredits(p.CreditsService, logg))
			r.Get("/history", controllers.CreditHistory(p.CreditsService, logg))
		})
	})

	return r
}
