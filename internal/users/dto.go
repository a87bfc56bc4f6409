package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	dbtypes "github.com/nordtolk/nordtolk-backend/pkg/db/types"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID           `json:"id"`
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	Phone        *string             `json:"phone,omitempty"`
	Role         enums.UserRole      `json:"role"`
	ConsumerType *enums.ConsumerType `json:"consumer_type,omitempty"`
	Town         *string             `json:"town,omitempty"`
	IsActive     bool                `json:"is_active"`
	LastLoginAt  *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	Role         enums.UserRole
	ConsumerType *enums.ConsumerType
	Town         *string
	IsActive     *bool
}

// InterpreterProfileDTO mirrors the matching-relevant attributes of an interpreter.
type InterpreterProfileDTO struct {
	UserID             uuid.UUID                `json:"user_id"`
	Type               enums.InterpreterType    `json:"type"`
	Gender             enums.Gender             `json:"gender"`
	Levels             []enums.InterpreterLevel `json:"levels"`
	LanguageIDs        []uuid.UUID              `json:"language_ids"`
	Towns              []string                 `json:"towns"`
	WorksInAllTowns    bool                     `json:"works_in_all_towns"`
	NotGetNotification bool                     `json:"not_get_notification"`
	NotGetNighttime    bool                     `json:"not_get_nighttime"`
	NotGetEmergency    bool                     `json:"not_get_emergency"`
	NotGetEmail        bool                     `json:"not_get_email"`
}

// UpsertProfileDTO is the write shape for interpreter profiles.
type UpsertProfileDTO struct {
	UserID             uuid.UUID
	Type               enums.InterpreterType
	Gender             enums.Gender
	Levels             []enums.InterpreterLevel
	LanguageIDs        []uuid.UUID
	Towns              []string
	WorksInAllTowns    bool
	NotGetNotification bool
	NotGetNighttime    bool
	NotGetEmergency    bool
	NotGetEmail        bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Phone:        u.Phone,
		Role:         u.Role,
		ConsumerType: u.ConsumerType,
		Town:         u.Town,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Phone:        c.Phone,
		Role:         c.Role,
		ConsumerType: c.ConsumerType,
		Town:         c.Town,
		IsActive:     isActive,
	}
}

func ProfileFromModel(p *models.InterpreterProfile) *InterpreterProfileDTO {
	if p == nil {
		return nil
	}

	levels := make([]enums.InterpreterLevel, 0, len(p.Levels))
	for _, l := range p.Levels {
		levels = append(levels, enums.InterpreterLevel(l))
	}

	return &InterpreterProfileDTO{
		UserID:             p.UserID,
		Type:               p.Type,
		Gender:             p.Gender,
		Levels:             levels,
		LanguageIDs:        append([]uuid.UUID(nil), []uuid.UUID(p.LanguageIDs)...),
		Towns:              append([]string(nil), []string(p.Towns)...),
		WorksInAllTowns:    p.WorksInAllTowns,
		NotGetNotification: p.NotGetNotification,
		NotGetNighttime:    p.NotGetNighttime,
		NotGetEmergency:    p.NotGetEmergency,
		NotGetEmail:        p.NotGetEmail,
	}
}

func (u UpsertProfileDTO) ToModel() *models.InterpreterProfile {
	levels := make(pq.StringArray, 0, len(u.Levels))
	for _, l := range u.Levels {
		levels = append(levels, string(l))
	}

	langIDs := u.LanguageIDs
	if langIDs == nil {
		langIDs = []uuid.UUID{}
	} else {
		langIDs = append([]uuid.UUID(nil), langIDs...)
	}

	towns := u.Towns
	if towns == nil {
		towns = []string{}
	} else {
		towns = append([]string(nil), towns...)
	}

	return &models.InterpreterProfile{
		UserID:             u.UserID,
		Type:               u.Type,
		Gender:             u.Gender,
		Levels:             levels,
		LanguageIDs:        dbtypes.UUIDArray(langIDs),
		Towns:              pq.StringArray(towns),
		WorksInAllTowns:    u.WorksInAllTowns,
		NotGetNotification: u.NotGetNotification,
		NotGetNighttime:    u.NotGetNighttime,
		NotGetEmergency:    u.NotGetEmergency,
		NotGetEmail:        u.NotGetEmail,
	}
}
