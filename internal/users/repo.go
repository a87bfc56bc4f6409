package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// FindProfile loads the interpreter profile for a user.
func (r *Repository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.InterpreterProfile, error) {
	var profile models.InterpreterProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the interpreter profile for a user.
func (r *Repository) UpsertProfile(ctx context.Context, dto UpsertProfileDTO) (*models.InterpreterProfile, error) {
	profile := dto.ToModel()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(profile).Error
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// InterpreterCandidate pairs an interpreter account with their matching profile.
type InterpreterCandidate struct {
	User    models.User
	Profile models.InterpreterProfile
}

// ListActiveInterpreters returns every active interpreter account together with
// its profile. Accounts without a profile are skipped; they cannot be matched.
func (r *Repository) ListActiveInterpreters(ctx context.Context) ([]InterpreterCandidate, error) {
	var accounts []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", enums.UserRoleInterpreter, true).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(accounts))
	for _, u := range accounts {
		ids = append(ids, u.ID)
	}

	var profiles []models.InterpreterProfile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]models.InterpreterProfile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	candidates := make([]InterpreterCandidate, 0, len(accounts))
	for _, u := range accounts {
		profile, ok := byUser[u.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, InterpreterCandidate{User: u, Profile: profile})
	}
	return candidates, nil
}

// BlacklistedInterpreterIDs returns the interpreters a customer has blocked.
func (r *Repository) BlacklistedInterpreterIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BlacklistEntry{}).
		Where("customer_id = ?", customerID).
		Pluck("interpreter_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AddBlacklistEntry blocks an interpreter for a customer. Adding the same pair
// twice is a no-op.
func (r *Repository) AddBlacklistEntry(ctx context.Context, customerID, interpreterID uuid.UUID) error {
	entry := models.BlacklistEntry{
		ID:            uuid.New(),
		CustomerID:    customerID,
		InterpreterID: interpreterID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

// RemoveBlacklistEntry unblocks an interpreter for a customer.
func (r *Repository) RemoveBlacklistEntry(ctx context.Context, customerID, interpreterID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND interpreter_id = ?", customerID, interpreterID).
		Delete(&models.BlacklistEntry{}).Error
}
