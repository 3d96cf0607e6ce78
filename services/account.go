package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/models"
	"github.com/dzoniops/rental-service/utils"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

type RegisterInput struct {
	Name     string `json:"name"     validate:"notblank"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	IsAdmin  bool   `json:"isAdmin"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AccountService struct {
	users            UserStore
	creds            *auth.Credentials
	logger           log.Logger
	allowAdminSignup bool
}

func NewAccountService(users UserStore, creds *auth.Credentials, logger log.Logger, allowAdminSignup bool) *AccountService {
	return &AccountService{users: users, creds: creds, logger: logger, allowAdminSignup: allowAdminSignup}
}

// Register creates a user with a unique email and opens a session for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin && s.allowAdminSignup,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	level.Info(s.logger).Log("msg", "user registered", "user", user.ID, "admin", user.IsAdmin)
	return s.session(user)
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.creds.Verify(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// Me returns the stored user behind an identity.
func (s *AccountService) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, id.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates an administrator account, or promotes the existing
// account with that email.
func (s *AccountService) EnsureAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if err := s.users.SetAdmin(ctx, existing.ID, true); err != nil {
			return nil, fmt.Errorf("promote user: %w", err)
		}
		existing.IsAdmin = true
		level.Info(s.logger).Log("msg", "user promoted to admin", "user", existing.ID)
		return existing, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := utils.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.ValidationMessage(err))
	}
	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, IsAdmin: true}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	level.Info(s.logger).Log("msg", "admin created", "user", user.ID)
	return user, nil
}

func (s *AccountService) session(user *models.User) (*Session, error) {
	token, err := s.creds.IssueToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
