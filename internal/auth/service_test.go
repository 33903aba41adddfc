package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type memUsers struct {
	byID    map[string]storage.User
	byEmail map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]storage.User), byEmail: make(map[string]string)}
}

func (m *memUsers) CreateUser(_ context.Context, u storage.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return core.ErrAlreadyExists
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *memUsers) GetUser(_ context.Context, id string) (*storage.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return m.GetUser(nil, id)
}

func newTestService() (*Service, *memUsers) {
	users := newMemUsers()
	return NewService(users, NewSessionStore(time.Hour)), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, " Alice@Example.com ", "Alice", "s3cretpass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", user.Email)
	}
	if user.Config.RenewalDay != 1 {
		t.Errorf("expected default renewal day 1, got %d", user.Config.RenewalDay)
	}
	if token == "" {
		t.Fatal("expected session token")
	}

	got, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated as %s, want %s", got.ID, user.ID)
	}

	_, token2, err := svc.Login(ctx, "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// issuing a new session revokes the old one
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected old token revoked, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, token2); err != nil {
		t.Errorf("new token should authenticate: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "x", "s3cretpass"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "x", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	if _, _, err := svc.Register(ctx, "a@b.com", "x", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "y", "otherpass99"); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "a@b.com", "x", "s3cretpass"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "a@b.com", "wrongpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@b.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "a@b.com", "x", "s3cretpass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc.Logout(token)
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected revoked token to fail, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(20 * time.Millisecond)
	token := store.Issue("u1")

	if _, ok := store.Resolve(token); !ok {
		t.Fatal("fresh token should resolve")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := store.Resolve(token); ok {
		t.Error("expired token should not resolve")
	}
	if store.Len() != 0 {
		t.Errorf("expired session should be dropped on resolve, len=%d", store.Len())
	}
}

func TestSessionCleanup(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	store.Issue("u1")
	store.Issue("u2")

	store.StartCleanup(5 * time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	store.StopCleanup()

	if store.Len() != 0 {
		t.Errorf("expected cleanup to remove expired sessions, len=%d", store.Len())
	}
}
