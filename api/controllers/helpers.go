package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/api/middleware"
	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
)

func actingUser(r *http.Request) (bookings.ActingUser, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return bookings.ActingUser{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return bookings.ActingUser{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid identity")
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return bookings.ActingUser{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return bookings.ActingUser{ID: id, Role: role}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
	}
	return value, nil
}
