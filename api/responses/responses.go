package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// SuccessEnvelope wraps every successful API response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every failed API response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the public error shape.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeForbidden,
		pkgerrors.CodeUnauthorized,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeRateLimit:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := ErrorEnvelope{
		Error: APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"error_code": string(typed.Code()),
			"status":     meta.HTTPStatus,
		})
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
