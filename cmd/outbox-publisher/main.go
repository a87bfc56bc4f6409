package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/migrate"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/registry"
	"github.com/nordtolk/nordtolk-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	requireResource(ctx, logg, "outbox publisher service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "outbox publisher ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "outbox publisher shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
