package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/pagination"
)

// Repository persists notification rows and gives the dispatcher read access
// to the booking context it renders messages from.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts one notification row.
func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListForUser pages through a user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Notification, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(normalized + 1).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// MarkSent stamps a delivered notification.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  enums.DeliveryStatusSent,
			"sent_at": at,
		}).Error
}

// MarkDeferred stamps a notification held back until send_after.
func (r *Repository) MarkDeferred(ctx context.Context, id uuid.UUID, sendAfter time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.DeliveryStatusDeferred,
			"send_after": sendAfter,
		}).Error
}

// FindDeferredDue returns deferred rows whose send_after has passed, oldest
// first.
func (r *Repository) FindDeferredDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND send_after <= ?", enums.DeliveryStatusDeferred, now).
		Order("send_after ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkFailed records a gateway failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.DeliveryStatusFailed,
			"last_error": cause,
		}).Error
}

// FindBooking loads the booking a dispatched event refers to.
func (r *Repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindLanguage loads a language for message rendering.
func (r *Repository) FindLanguage(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	var lang models.Language
	if err := r.db.WithContext(ctx).First(&lang, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lang, nil
}
