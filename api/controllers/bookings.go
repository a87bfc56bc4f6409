package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/api/responses"
	"github.com/nordtolk/nordtolk-backend/api/validators"
	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

// CreateBooking places a new booking for the authenticated customer.
func CreateBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bookings.CreateBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Create(r.Context(), actor, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

// GetBooking returns one booking visible to the actor.
func GetBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// ListBookings pages through the bookings visible to the actor. Statuses can
// be filtered with a comma-separated status query parameter.
func ListBookings(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := bookings.ListParams{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		params.Limit, err = queryLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				status, err := enums.ParseBookingStatus(strings.TrimSpace(part))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
					return
				}
				params.Statuses = append(params.Statuses, status)
			}
		}

		result, err := svc.ListForUser(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateBooking runs the update orchestrator against one booking.
func UpdateBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bookings.UpdateBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), actor, id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AcceptBooking lets an interpreter claim a pending booking.
func AcceptBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc.Accept, logg)
}

// CancelBooking withdraws or cancels a booking depending on the actor's role.
func CancelBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc.Cancel, logg)
}

// StartSession marks an assigned booking as in progress.
func StartSession(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc.Start, logg)
}

// EndSession completes a session and records the elapsed time.
func EndSession(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc.End, logg)
}

// CustomerNotCall flags a session where the customer never called in.
func CustomerNotCall(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingAction(svc.CustomerNotCall, logg)
}

// ReopenBooking resets or clones a booking back into the pending pool.
func ReopenBooking(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	type reopenRequest struct {
		Comment string `json:"comment"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reopenRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		booking, err := svc.Reopen(r.Context(), actor, id, req.Comment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// BookingHistory returns the status audit trail for a booking.
func BookingHistory(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// PotentialBookings lists the pending bookings the authenticated interpreter
// is eligible to accept.
func PotentialBookings(svc *bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.UserRoleInterpreter {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "interpreter role required"))
			return
		}

		result, err := svc.PotentialForInterpreter(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// bookingAction wraps the single-booking POST operations that share the
// actor + path-id + call shape.
func bookingAction(op func(context.Context, bookings.ActingUser, uuid.UUID) (*bookings.BookingDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := op(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}
