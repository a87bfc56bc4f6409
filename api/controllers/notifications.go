package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/api/responses"
	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/pagination"
)

// NotificationDTO is the transport shape of a delivered notification.
type NotificationDTO struct {
	ID        uuid.UUID                 `json:"id"`
	BookingID *uuid.UUID                `json:"booking_id,omitempty"`
	Type      enums.NotificationType    `json:"type"`
	Channel   enums.NotificationChannel `json:"channel"`
	Status    enums.DeliveryStatus      `json:"status"`
	Payload   json.RawMessage           `json:"payload,omitempty"`
	SentAt    *time.Time                `json:"sent_at,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// NotificationList wraps a notification page and its next cursor.
type NotificationList struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

// ListNotifications returns the authenticated user's notifications, newest
// first, cursor-paginated.
func ListNotifications(repo *notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := queryLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var cursor *pagination.Cursor
		if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
			cursor, err = pagination.ParseCursor(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
				return
			}
		}

		rows, next, err := repo.ListForUser(r.Context(), actor.ID, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications"))
			return
		}

		result := NotificationList{Items: make([]NotificationDTO, 0, len(rows))}
		for i := range rows {
			result.Items = append(result.Items, notificationFromModel(&rows[i]))
		}
		if next != nil {
			result.Cursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, result)
	}
}

func notificationFromModel(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		BookingID: n.BookingID,
		Type:      n.Type,
		Channel:   n.Channel,
		Status:    n.Status,
		Payload:   n.Payload,
		SentAt:    n.SentAt,
		CreatedAt: n.CreatedAt,
	}
}
