package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gigescrow-backend/api/routes"
	"github.com/angelmondragon/gigescrow-backend/internal/catalog"
	"github.com/angelmondragon/gigescrow-backend/internal/checkout"
	"github.com/angelmondragon/gigescrow-backend/internal/coupons"
	"github.com/angelmondragon/gigescrow-backend/internal/disputes"
	"github.com/angelmondragon/gigescrow-backend/internal/invoices"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/orders"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	"github.com/angelmondragon/gigescrow-backend/internal/reviews"
	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/internal/withdrawals"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/env"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/migrate"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	params, err := buildRouterParams(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	params.Redis = redisClient
	params.Gatherer = prometheus.DefaultGatherer

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// buildRouterParams constructs every domain service over one database
// client. Money-moving services share the escrow engine, wallet ledger and
// outbox so their writes land in a single transaction.
func buildRouterParams(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.RouterParams, error) {
	gdb := dbClient.DB()
	escrowMetrics := metrics.NewEscrowMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	catalogRepo := catalog.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	notifier, err := notifications.NewNotifier(outboxService)
	if err != nil {
		return routes.RouterParams{}, err
	}
	walletService, err := wallet.NewService(wallet.NewRepository(gdb), usersRepo)
	if err != nil {
		return routes.RouterParams{}, err
	}
	couponService, err := coupons.NewService(coupons.NewRepository(gdb))
	if err != nil {
		return routes.RouterParams{}, err
	}
	reputationService, err := reputation.NewService(reputation.NewRepository(gdb), usersRepo)
	if err != nil {
		return routes.RouterParams{}, err
	}
	escrow, err := orders.NewEscrow(ordersRepo, walletService, outboxService, escrowMetrics)
	if err != nil {
		return routes.RouterParams{}, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       ordersRepo,
		Tx:         dbClient,
		Escrow:     escrow,
		Ledger:     walletService,
		Outbox:     outboxService,
		Notifier:   notifier,
		Reputation: reputationService,
		Metrics:    escrowMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Catalog:  catalogRepo,
		Orders:   ordersRepo,
		Users:    usersRepo,
		Coupons:  couponService,
		Ledger:   walletService,
		Outbox:   outboxService,
		Notifier: notifier,
		Escrow:   cfg.Escrow,
		Metrics:  escrowMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	disputeService, err := disputes.NewService(disputes.ServiceParams{
		Repo:       disputes.NewRepository(gdb),
		Orders:     ordersRepo,
		Escrow:     escrow,
		Tx:         dbClient,
		Notifier:   notifier,
		Reputation: reputationService,
		Metrics:    escrowMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	withdrawalService, err := withdrawals.NewService(withdrawals.ServiceParams{
		Repo:     withdrawals.NewRepository(gdb),
		Users:    usersRepo,
		Ledger:   walletService,
		Tx:       dbClient,
		Notifier: notifier,
		Metrics:  escrowMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Repo:       reviews.NewRepository(gdb),
		Catalog:    catalogRepo,
		Tx:         dbClient,
		Notifier:   notifier,
		Reputation: reputationService,
		Logger:     logg,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	invoiceService, err := invoices.NewService(invoices.NewRepository(gdb), ordersRepo)
	if err != nil {
		return routes.RouterParams{}, err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return routes.RouterParams{}, err
	}

	return routes.RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Checkout:      checkoutService,
		Coupons:       couponService,
		Orders:        ordersService,
		Disputes:      disputeService,
		Wallet:        walletService,
		Withdrawals:   withdrawalService,
		Reputation:    reputationService,
		Reviews:       reviewService,
		Notifications: notificationService,
		Invoices:      invoiceService,
	}, nil
}
