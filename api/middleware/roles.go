package middleware

import (
	"net/http"

	"github.com/nordtolk/nordtolk-backend/api/responses"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// RequireRole rejects requests whose authenticated role does not match.
func RequireRole(role enums.UserRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != string(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOperator rejects requests from non-back-office roles.
func RequireOperator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			if !role.IsOperator() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
