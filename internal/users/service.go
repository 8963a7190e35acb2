// Package users manages logins and their roles.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for an unknown user, a wrong password
	// or an inactive account; callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLastAdmin is returned when a change would leave no active admin.
	ErrLastAdmin = errors.New("at least one active admin is required")
)

// Repository is the persistence the user service needs.
type Repository interface {
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUserChecked(ctx context.Context, u model.User, check func(cur model.User, activeAdmins int) error) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Auditor receives a record of every state change.
type Auditor interface {
	Append(entries ...audit.Entry) error
}

// Service provides user administration and password checks.
type Service struct {
	repo  Repository
	audit Auditor
	log   *zap.Logger
	cost  int
}

// NewService creates a user Service.
func NewService(repo Repository, auditor Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, audit: auditor, log: logger.Named("users"), cost: bcrypt.DefaultCost}
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

// Create adds a user with the given password.
func (s *Service) Create(ctx context.Context, actor string, u model.User, password string) (model.User, error) {
	u.ID = 0
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.Username == "" {
		return model.User{}, fmt.Errorf("%w: username is required", model.ErrInvalid)
	}
	if strings.ContainsAny(u.Username, " \t:") {
		return model.User{}, fmt.Errorf("%w: username %q contains spaces or colons", model.ErrInvalid, u.Username)
	}
	if u.Role == "" {
		u.Role = model.RoleViewer
	}
	if !u.Role.Valid() {
		return model.User{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalid, u.Role)
	}

	hash, err := s.hash(password)
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = hash
	u.Active = true

	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return model.User{}, err
	}
	s.record(actor, audit.ActionCreate, u.ID, u.Username+" as "+string(u.Role))
	return u, nil
}

// Update changes a user's profile, role and active flag. The username and
// password are not touched.
func (s *Service) Update(ctx context.Context, actor string, u model.User) (model.User, error) {
	cur, err := s.repo.GetUser(ctx, u.ID)
	if err != nil {
		return model.User{}, err
	}
	if !u.Role.Valid() {
		return model.User{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalid, u.Role)
	}

	u.Username = cur.Username
	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	if err := s.repo.UpdateUserChecked(ctx, u, keepAnAdmin(u.Role, u.Active)); err != nil {
		return model.User{}, err
	}
	s.record(actor, audit.ActionUpdate, u.ID, u.Username)
	return u, nil
}

// SetPassword replaces a user's password.
func (s *Service) SetPassword(ctx context.Context, actor string, id int64, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, hash); err != nil {
		return err
	}
	s.record(actor, audit.ActionPassword, id, "")
	return nil
}

// Deactivate blocks a user from logging in.
func (s *Service) Deactivate(ctx context.Context, actor string, id int64) (model.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	u.Active = false
	if err := s.repo.UpdateUserChecked(ctx, u, keepAnAdmin(u.Role, false)); err != nil {
		return model.User{}, err
	}
	s.record(actor, audit.ActionDeactivate, u.ID, u.Username)
	return u, nil
}

// Authenticate checks a username and password and returns the active user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Info("login failed", zap.String("user", u.Username))
		return model.User{}, ErrInvalidCredentials
	}
	if !u.Active {
		s.log.Info("login by inactive user", zap.String("user", u.Username))
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// keepAnAdmin returns a check that fails when the stored user is the last
// active admin and the change to role and active would demote or
// deactivate it.
func keepAnAdmin(role model.Role, active bool) func(cur model.User, activeAdmins int) error {
	return func(cur model.User, activeAdmins int) error {
		if cur.Role != model.RoleAdmin || !cur.Active {
			return nil
		}
		if role == model.RoleAdmin && active {
			return nil
		}
		if activeAdmins <= 1 {
			return fmt.Errorf("%w: %s is the last one", ErrLastAdmin, cur.Username)
		}
		return nil
	}
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalid, MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

func (s *Service) record(actor, action string, id int64, details string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(audit.Entry{User: actor, Action: action, Entity: "user", EntityID: id, Details: details})
	if err != nil {
		s.log.Error("writing audit entry", zap.Int64("id", id), zap.Error(err))
	}
}
