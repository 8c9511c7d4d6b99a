package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/settlement-engine/api/controllers"
	admincontrollers "github.com/angelmondragon/settlement-engine/api/controllers/admin"
	notificationcontrollers "github.com/angelmondragon/settlement-engine/api/controllers/notifications"
	ordercontrollers "github.com/angelmondragon/settlement-engine/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/settlement-engine/api/controllers/payments"
	walletcontrollers "github.com/angelmondragon/settlement-engine/api/controllers/wallet"
	webhookcontrollers "github.com/angelmondragon/settlement-engine/api/controllers/webhooks"
	"github.com/angelmondragon/settlement-engine/api/middleware"
	"github.com/angelmondragon/settlement-engine/internal/cron"
	"github.com/angelmondragon/settlement-engine/internal/escrow"
	"github.com/angelmondragon/settlement-engine/internal/notifications"
	"github.com/angelmondragon/settlement-engine/internal/orders"
	"github.com/angelmondragon/settlement-engine/internal/payments"
	"github.com/angelmondragon/settlement-engine/internal/refunds"
	"github.com/angelmondragon/settlement-engine/internal/wallet"
	stripewebhook "github.com/angelmondragon/settlement-engine/internal/webhooks/stripe"
	"github.com/angelmondragon/settlement-engine/pkg/config"
	"github.com/angelmondragon/settlement-engine/pkg/db"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/redis"
)

// Services bundles everything the HTTP surface calls into.
type Services struct {
	DB            db.Pinger
	Redis         *redis.Client
	Orders        orders.Service
	Payments      payments.Service
	Wallet        wallet.Service
	Escrow        escrow.Service
	Refunds       refunds.Service
	Notifications notifications.Service
	Webhooks      *stripewebhook.Service
	// ReleaseLock is shared with the cron worker so a manual sweep never
	// overlaps a scheduled one.
	ReleaseLock cron.Lock
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Frontend.BaseURL),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.Window,
		cfg.RateLimit.CheckoutLimit,
	)
	// without redis, retries are not deduplicated and checkout is unthrottled
	money, standard := passthrough, passthrough
	checkoutLimit := passthrough
	readiness := map[string]controllers.Pinger{"postgres": svc.DB}
	if svc.Redis != nil {
		money = middleware.Idempotent(svc.Redis, middleware.MoneyIdempotencyTTL, logg)
		standard = middleware.Idempotent(svc.Redis, middleware.StandardIdempotencyTTL, logg)
		checkoutLimit = middleware.RateLimit(checkoutPolicy, svc.Redis, logg)
		readiness["redis"] = svc.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if svc.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(svc.Webhooks, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(money).Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Get("/{orderNumber}", ordercontrollers.Detail(svc.Orders, logg))
			r.With(money).Post("/{orderNumber}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
			r.With(checkoutLimit, money).Post("/{orderNumber}/checkout", ordercontrollers.Checkout(svc.Orders, svc.Payments, logg))
		})

		r.With(checkoutLimit, money).Post("/payments/checkout", paymentcontrollers.ServiceCheckout(svc.Payments, logg))
		r.Get("/wallet", walletcontrollers.Summary(svc.Wallet, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationcontrollers.List(svc.Notifications, logg))
			r.Post("/{notificationID}/read", notificationcontrollers.MarkRead(svc.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.Route("/orders/{orderNumber}", func(r chi.Router) {
			r.Get("/", admincontrollers.Order(svc.Orders, logg))
			r.With(standard).Patch("/status", admincontrollers.UpdateStatus(svc.Orders, logg))
			r.Put("/tracking", admincontrollers.UpdateTracking(svc.Orders, logg))
			r.With(standard).Post("/escrow/hold", admincontrollers.HoldEscrow(svc.Escrow, logg))
			r.With(standard).Post("/escrow/release", admincontrollers.ReleaseEscrow(svc.Escrow, logg))
			r.With(money).Post("/refunds", admincontrollers.Refund(svc.Refunds, logg))
			r.Get("/refunds", admincontrollers.Refunds(svc.Refunds, logg))
			r.Get("/dispute", admincontrollers.Dispute(svc.Refunds, logg))
		})

		r.With(standard).Post("/disputes/{disputeID}/evidence", admincontrollers.SubmitEvidence(svc.Refunds, logg))
		r.Post("/escrow/auto-release", admincontrollers.AutoRelease(svc.Escrow, svc.ReleaseLock, logg))
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
