// Package auth handles account registration, password verification and
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const bcryptCost = 12

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// dummyHash keeps login timing flat for unknown accounts.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fintrack-dummy"), bcryptCost)

// UserStore is the slice of the repository the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u storage.User) error
	GetUser(ctx context.Context, id string) (*storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

type Service struct {
	users    UserStore
	sessions *SessionStore
}

func NewService(users UserStore, sessions *SessionStore) *Service {
	return &Service{users: users, sessions: sessions}
}

// Register creates an account with default budget preferences and logs
// the user in. New accounts renew their budget cycle on the 1st until
// they configure otherwise.
func (s *Service) Register(ctx context.Context, email, name, password string) (*storage.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, "", ErrWeakPassword
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Config:       core.BudgetConfig{RenewalDay: 1},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	return &user, s.sessions.Issue(user.ID), nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*storage.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	return user, s.sessions.Issue(user.ID), nil
}

// Logout revokes the session for the given token.
func (s *Service) Logout(token string) {
	s.sessions.Revoke(token)
}

// Authenticate resolves a session token to its user record.
func (s *Service) Authenticate(ctx context.Context, token string) (*storage.User, error) {
	userID, ok := s.sessions.Resolve(token)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	return user, err
}
