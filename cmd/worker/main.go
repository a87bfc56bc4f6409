package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/i18n"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/mailer"
	"github.com/nordtolk/nordtolk-backend/pkg/metrics"
	"github.com/nordtolk/nordtolk-backend/pkg/migrate"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/idempotency"
	"github.com/nordtolk/nordtolk-backend/pkg/pubsub"
	"github.com/nordtolk/nordtolk-backend/pkg/push"
	"github.com/nordtolk/nordtolk-backend/pkg/redis"
	"github.com/nordtolk/nordtolk-backend/pkg/sms"
)

// Processed-event markers outlive any realistic redelivery window.
const idempotencyTTL = 7 * 24 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notification-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	pushClient, err := push.NewClient(cfg.Push, logg)
	requireResource(ctx, logg, "push client", err)
	smsClient, err := sms.NewClient(cfg.SMS, logg)
	requireResource(ctx, logg, "sms client", err)
	mailClient, err := mailer.NewClient(cfg.Mail, logg)
	requireResource(ctx, logg, "mail client", err)

	usersRepo := users.NewRepository(dbClient.DB())
	matcher, err := matching.NewService(usersRepo)
	requireResource(ctx, logg, "matching service", err)

	dispatcher, err := notifications.NewService(notifications.ServiceParams{
		Repo:    notifications.NewRepository(dbClient.DB()),
		Users:   usersRepo,
		Matcher: matcher,
		Push:    pushClient,
		SMS:     smsClient,
		Mail:    mailClient,
		Catalog: i18n.NewCatalog(),
		Booking: cfg.Booking,
		Notify:  cfg.Notify,
		Metrics: metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	idemManager, err := idempotency.NewManager(redisClient, idempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := notifications.NewConsumer(
		dispatcher,
		pubsubClient.BookingSubscription(),
		idemManager,
		logg,
	)
	requireResource(ctx, logg, "notification consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "notification worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
