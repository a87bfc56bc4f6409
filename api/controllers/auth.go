package controllers

import (
	"net/http"

	"github.com/nordtolk/nordtolk-backend/api/responses"
	"github.com/nordtolk/nordtolk-backend/api/validators"
	"github.com/nordtolk/nordtolk-backend/internal/auth"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// AuthLogin exchanges credentials for an access token.
func AuthLogin(svc *auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates an account and returns its first access token.
func AuthRegister(svc *auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
