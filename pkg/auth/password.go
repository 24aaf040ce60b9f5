// Package auth registers users and checks their email and password.
// Passwords are stored only as bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/sanitizer"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

// bcrypt ignores input past this length.
const maxPasswordBytes = 72

// Storage is the user persistence the service needs.
type Storage interface {
	// CreateUser assigns user.ID. A taken email yields ErrEmailAlreadyExists.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByEmail yields ErrUserNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type PasswordService struct {
	storage    Storage
	bcryptCost int
	logger     *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

type PasswordOption func(*PasswordService)

func WithBcryptCost(cost int) PasswordOption {
	return func(s *PasswordService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithLogger(log *slog.Logger) PasswordOption {
	return func(s *PasswordService) {
		if log != nil {
			s.logger = log
		}
	}
}

func NewPasswordService(storage Storage, opts ...PasswordOption) *PasswordService {
	s := &PasswordService{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. Name and email are required, the email must be
// well formed and the password non-empty and at most 72 bytes.
func (s *PasswordService) Register(ctx context.Context, name, email, password string) (*User, error) {
	name = sanitizer.Text(name)
	email = sanitizer.NormalizeEmail(email)

	if err := validator.Apply(
		validator.Required("name", name),
		validator.MaxLen("name", name, 255),
		validator.Required("email", email),
		validator.ValidEmail("email", email),
		validator.MaxLen("email", email, 255),
		validator.NotEmpty("password", password),
		validator.MaxBytes("password", password, maxPasswordBytes),
	); err != nil {
		return nil, err
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		logger.UserID(user.ID),
		logger.Email(user.Email),
		logger.Component("auth"),
	)
	return user, nil
}

// Authenticate returns the user whose email and password match. Every
// mismatch, unknown email included, yields ErrInvalidCredentials.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		// Spend the same bcrypt work as for a real account.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.logger.WarnContext(ctx, "login failed", logger.Email(email), logger.Event("unknown_email"), logger.Component("auth"))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "login failed", logger.UserID(user.ID), logger.Event("wrong_password"), logger.Component("auth"))
		return nil, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "user logged in", logger.UserID(user.ID), logger.Component("auth"))
	return user, nil
}

func (s *PasswordService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookkeeper-dummy-password"), s.bcryptCost)
	})
	return s.dummyHash
}
