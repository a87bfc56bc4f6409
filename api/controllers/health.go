package controllers

import (
	"context"
	"net/http"

	"github.com/nordtolk/nordtolk-backend/api/responses"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// Pinger is the readiness contract satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NordTolk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NordTolk-Env", cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
