package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gigescrow-backend/api/controllers"
	"github.com/angelmondragon/gigescrow-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/gigescrow-backend/internal/checkout"
	"github.com/angelmondragon/gigescrow-backend/internal/coupons"
	"github.com/angelmondragon/gigescrow-backend/internal/disputes"
	"github.com/angelmondragon/gigescrow-backend/internal/invoices"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	"github.com/angelmondragon/gigescrow-backend/internal/reviews"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/internal/withdrawals"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gigescrow-backend/pkg/redis"
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(context.Context) error
}

// RedisStore backs idempotency records and write rate limits.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RouterParams carries everything the HTTP surface needs. A nil Redis
// disables idempotency and rate limiting.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       Pinger
	Redis    RedisStore
	Gatherer prometheus.Gatherer

	Checkout      checkoutsvc.Service
	Coupons       coupons.Service
	Orders        orders.Service
	Disputes      disputes.Service
	Wallet        wallet.Service
	Withdrawals   withdrawals.Service
	Reputation    reputation.Service
	Reviews       reviews.Service
	Notifications notifications.Service
	Invoices      invoices.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checks := []controllers.ReadinessCheck{}
	if p.DB != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "database", Ping: p.DB.Ping})
	}
	if p.Redis != nil {
		if pinger, ok := p.Redis.(Pinger); ok {
			checks = append(checks, controllers.ReadinessCheck{Name: "redis", Ping: pinger.Ping})
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})

	if p.Gatherer != nil {
		metricsPath := cfg.Metrics.APIPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.WriteRateLimitStore
	if p.Redis != nil {
		idempotencyStore = p.Redis
		limiter = p.Redis
	}
	writePolicy := middleware.NewWriteRateLimitPolicy("writes", cfg.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.WriteRateLimit(writePolicy, limiter, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.With(middleware.RequireRole(logg, enums.UserRoleBuyer)).Post("/checkout", controllers.Checkout(p.Checkout, logg))
		r.Post("/coupons/apply", controllers.ApplyCoupon(p.Coupons, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/buyer", controllers.ListBuyerOrders(p.Orders, logg))
			r.Get("/seller", controllers.ListSellerOrders(p.Orders, logg))
			r.Get("/seller/performance", controllers.SellerPerformance(p.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(p.Orders, logg))
				r.Patch("/status", controllers.UpdateOrderStatus(p.Orders, logg))
				r.Post("/milestones/{milestoneId}/complete", controllers.CompleteMilestone(p.Orders, logg))
				r.Get("/invoice", controllers.GetOrderInvoice(p.Invoices, logg))
			})
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", controllers.RaiseDispute(p.Disputes, logg))
			r.Get("/", controllers.ListDisputes(p.Disputes, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(p.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(p.Wallet, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleSeller))
			r.Post("/", controllers.RequestWithdrawal(p.Withdrawals, logg))
			r.Get("/", controllers.ListWithdrawals(p.Withdrawals, logg))
		})

		r.Get("/sellers/{sellerId}/reputation", controllers.SellerReputation(p.Reputation, logg))
		r.Get("/services/{serviceId}/reviews", controllers.ListServiceReviews(p.Reviews, logg))
		r.With(middleware.RequireRole(logg, enums.UserRoleBuyer)).Post("/reviews", controllers.SubmitReview(p.Reviews, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Patch("/disputes/{disputeId}", controllers.AdminResolveDispute(p.Disputes, logg))
			r.Get("/withdrawals", controllers.AdminListWithdrawals(p.Withdrawals, logg))
			r.Patch("/withdrawals/{id}", controllers.AdminProcessWithdrawal(p.Withdrawals, logg))
			r.Post("/coupons", controllers.AdminCreateCoupon(p.Coupons, logg))
			r.Get("/coupons", controllers.AdminListCoupons(p.Coupons, logg))
			r.Get("/wallets/{userId}/reconcile", controllers.AdminReconcileWallet(p.Wallet, logg))
		})
	})

	return r
}
