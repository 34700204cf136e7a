package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gigescrow-backend/internal/invoices"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/pkg/config"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/metrics"
	"github.com/angelmondragon/gigescrow-backend/pkg/migrate"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
)

func main() {
	requeue := flag.String("requeue", "", "push one dead-lettered event id back onto the outbox and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
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

	if *requeue != "" {
		if err := requeueDeadLetter(dbClient, logg, *requeue); err != nil {
			logg.Error(context.Background(), "failed to requeue dead-lettered event", err)
			os.Exit(1)
		}
		return
	}

	registry, err := buildRegistry(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build handler registry", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      registry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting outbox publisher")

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.WorkerAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// buildRegistry wires the in-process consumers. Event types without a
// handler are marked published untouched.
func buildRegistry(dbClient *db.Client, logg *logger.Logger) (*outbox.HandlerRegistry, error) {
	notificationHandler, err := notifications.NewHandler(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return nil, err
	}
	invoiceHandler, err := invoices.NewHandler(invoices.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return nil, err
	}

	registry := outbox.NewHandlerRegistry()
	registry.Register(enums.EventNotificationRequested, notificationHandler)
	registry.Register(enums.EventOrderCompleted, invoiceHandler)
	return registry, nil
}

func requeueDeadLetter(dbClient *db.Client, logg *logger.Logger, raw string) error {
	eventID, err := uuid.Parse(raw)
	if err != nil {
		return err
	}
	ctx := logg.WithField(context.Background(), "outbox_id", eventID.String())
	if err := outbox.NewDLQRepository(dbClient.DB()).Requeue(ctx, eventID); err != nil {
		return err
	}
	logg.Info(ctx, "dead-lettered event requeued")
	return nil
}
