package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nordtolk/nordtolk-backend/api/controllers"
	"github.com/nordtolk/nordtolk-backend/api/routes"
	"github.com/nordtolk/nordtolk-backend/internal/auth"
	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/migrate"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	usersRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		Users:    usersRepo,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	matcher, err := matching.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(bookings.ServiceParams{
		DB:      dbClient,
		Users:   usersRepo,
		Matcher: matcher,
		Outbox:  outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Locker:  redisClient,
		Config:  cfg.Booking,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			Auth:          authService,
			Bookings:      bookingService,
			Notifications: notifications.NewRepository(dbClient.DB()),
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
