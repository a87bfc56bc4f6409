package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	pkgauth "github.com/nordtolk/nordtolk-backend/pkg/auth"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/security"
)

// ServiceParams packages the auth service dependencies.
type ServiceParams struct {
	Users    *users.Repository
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// Service handles credential verification and token minting.
type Service struct {
	users    *users.Repository
	jwt      config.JWTConfig
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{
		users:    params.Users,
		jwt:      params.JWT,
		password: params.Password,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// LoginRequest carries the credentials presented at login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a customer or interpreter account.
type RegisterRequest struct {
	Email        string              `json:"email" validate:"required,email"`
	Password     string              `json:"password" validate:"required,min=8"`
	Name         string              `json:"name" validate:"required"`
	Phone        *string             `json:"phone,omitempty"`
	Role         enums.UserRole      `json:"role" validate:"required"`
	ConsumerType *enums.ConsumerType `json:"consumer_type,omitempty"`
	Town         *string             `json:"town,omitempty"`
}

// AuthResult pairs the minted token with the account it identifies.
type AuthResult struct {
	Token string         `json:"token"`
	User  *users.UserDTO `json:"user"`
}

// Login verifies credentials and mints an access token. Wrong email and wrong
// password return the same error so the endpoint does not leak which one it was.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	account, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID: account.ID,
		Role:   account.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	if err := s.users.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, account.ID.String()), "failed to stamp last login", err)
	}

	return &AuthResult{Token: token, User: users.FromModel(account)}, nil
}

// Register creates an account and logs it in. Back-office roles cannot be
// self-registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.Role.IsOperator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot self-register this role")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}

	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		ConsumerType: req.ConsumerType,
		Town:         req.Town,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}

	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: account.ID,
		Role:   account.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &AuthResult{Token: token, User: users.FromModel(account)}, nil
}
