package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/pagination"
)

// Repository exposes booking persistence operations. WithTx rebinds it to a
// running transaction so service code can compose multi-row mutations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
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

// Create inserts a booking row.
func (r *Repository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

// FindByID loads a booking by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// Save persists the full booking row.
func (r *Repository) Save(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

// FindLanguage loads a language by id.
func (r *Repository) FindLanguage(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	var lang models.Language
	if err := r.db.WithContext(ctx).First(&lang, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lang, nil
}

// ActiveAssignment returns the open assignment for a booking, or the most
// recently completed one when no open row exists. Returns (nil, nil) when the
// booking never had an interpreter.
func (r *Repository) ActiveAssignment(ctx context.Context, bookingID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", bookingID).
		Order("created_at DESC").
		First(&assignment).Error
	if err == nil {
		return &assignment, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("booking_id = ? AND completed_at IS NOT NULL", bookingID).
		Order("completed_at DESC").
		First(&assignment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CreateAssignment inserts a new assignment row.
func (r *Repository) CreateAssignment(ctx context.Context, bookingID, interpreterID uuid.UUID) (*models.Assignment, error) {
	assignment := models.Assignment{
		ID:            uuid.New(),
		BookingID:     bookingID,
		InterpreterID: interpreterID,
	}
	if err := r.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CancelAssignment stamps canceled_at on an assignment row.
func (r *Repository) CancelAssignment(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		UpdateColumn("canceled_at", at).Error
}

// CancelOpenAssignments cancels every open assignment for a booking.
func (r *Repository) CancelOpenAssignments(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", bookingID).
		UpdateColumn("canceled_at", at).Error
}

// CompleteAssignment stamps completed_at/completed_by on an assignment row.
func (r *Repository) CompleteAssignment(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"completed_at": at,
			"completed_by": by,
		}).Error
}

// OpenAssignmentsForInterpreter lists the interpreter's open assignments
// together with their bookings, for the overlap guard on accept.
func (r *Repository) OpenAssignmentsForInterpreter(ctx context.Context, interpreterID uuid.UUID) ([]models.Assignment, []models.Booking, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("interpreter_id = ? AND canceled_at IS NULL AND completed_at IS NULL", interpreterID).
		Find(&assignments).Error
	if err != nil {
		return nil, nil, err
	}
	if len(assignments) == 0 {
		return nil, nil, nil
	}

	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.BookingID)
	}
	var bookings []models.Booking
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&bookings).Error; err != nil {
		return nil, nil, err
	}
	return assignments, bookings, nil
}

// InsertStatusChange appends to the booking's status audit trail.
func (r *Repository) InsertStatusChange(ctx context.Context, change *models.StatusChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(change).Error
}

// StatusHistory lists the audit trail for a booking, oldest first.
func (r *Repository) StatusHistory(ctx context.Context, bookingID uuid.UUID) ([]models.StatusChange, error) {
	var rows []models.StatusChange
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// listQuery is the shared shape for the cursor-paginated list scans.
type listQuery struct {
	Limit    int
	Cursor   *pagination.Cursor
	Statuses []enums.BookingStatus
}

func (r *Repository) list(scope *gorm.DB, q listQuery) ([]models.Booking, *pagination.Cursor, error) {
	if len(q.Statuses) > 0 {
		scope = scope.Where("status IN ?", q.Statuses)
	}
	if q.Cursor != nil {
		scope = scope.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(q.Limit)

	var rows []models.Booking
	err := scope.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// ListForCustomer pages through a customer's bookings.
func (r *Repository) ListForCustomer(ctx context.Context, customerID uuid.UUID, q listQuery) ([]models.Booking, *pagination.Cursor, error) {
	scope := r.db.WithContext(ctx).Model(&models.Booking{}).Where("customer_id = ?", customerID)
	return r.list(scope, q)
}

// ListForInterpreter pages through bookings assigned to an interpreter.
func (r *Repository) ListForInterpreter(ctx context.Context, interpreterID uuid.UUID, q listQuery) ([]models.Booking, *pagination.Cursor, error) {
	scope := r.db.WithContext(ctx).Model(&models.Booking{}).Where("interpreter_id = ?", interpreterID)
	return r.list(scope, q)
}

// ListPending returns open bookings, soonest due first. Used to compute the
// accept list offered to an interpreter.
func (r *Repository) ListPending(ctx context.Context) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BookingStatusPending).
		Order("due ASC").
		Find(&rows).Error
	return rows, err
}

// FindExpired returns pending bookings whose acceptance window has closed.
func (r *Repository) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND will_expire_at <= ?", enums.BookingStatusPending, now).
		Order("will_expire_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindDueForReminder returns assigned bookings whose session starts within
// the lead window and that have not been reminded yet.
func (r *Repository) FindDueForReminder(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent = ? AND due > ? AND due <= ?",
			enums.BookingStatusAssigned, false, now, now.Add(lead)).
		Order("due ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkReminderSent flags a booking so the reminder job fires once per booking.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		UpdateColumn("reminder_sent", true).Error
}
