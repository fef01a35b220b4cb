package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"estate-hub/internal/kvstore"
)

func newTestService() (*Service, *kvstore.MemoryStore) {
	kv := kvstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(kv, logger, nil), kv
}

func TestCredentialsSeedDefault(t *testing.T) {
	s, _ := newTestService()

	creds, err := s.Credentials(context.Background())
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.Username != "admin" || creds.Password != "admin123" {
		t.Fatalf("unexpected default credentials: %+v", creds)
	}
	if creds.Email != "" || creds.Phone != "" {
		t.Fatalf("expected empty contact details, got %+v", creds)
	}
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	s, kv := newTestService()
	ctx := context.Background()

	session, err := s.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !session.IsAuthenticated || session.Username != "admin" || session.Token == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	if _, ok, _ := kv.Get(ctx, SessionKey); !ok {
		t.Fatal("expected session record to be persisted")
	}
	if !s.IsAuthenticated(ctx) {
		t.Fatal("expected IsAuthenticated to be true")
	}
	if !s.Verify(ctx, session.Token) {
		t.Fatal("expected token to verify")
	}
}

func TestLoginFailureWritesNothing(t *testing.T) {
	s, kv := newTestService()
	ctx := context.Background()

	_, err := s.Login(ctx, "admin", "wrong")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, ok, _ := kv.Get(ctx, SessionKey); ok {
		t.Fatal("session must not be written on failed login")
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("expected IsAuthenticated to be false")
	}
}

func TestLogoutErasesSession(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.Login(ctx, "admin", "admin123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("expected IsAuthenticated false after logout")
	}
}

func TestIsAuthenticatedCorruptSession(t *testing.T) {
	s, kv := newTestService()
	ctx := context.Background()

	if err := kv.Put(ctx, SessionKey, []byte(`{broken`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if s.IsAuthenticated(ctx) {
		t.Fatal("corrupt session must read as unauthenticated")
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if err := s.ChangePassword(ctx, "nope", "new"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if err := s.ChangePassword(ctx, "admin123", "s3cret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := s.Login(ctx, "admin", "s3cret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := s.Login(ctx, "admin", "admin123"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatal("old password must no longer work")
	}
}

func TestChangeUsername(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if err := s.ChangeUsername(ctx, "admin123", "owner"); err != nil {
		t.Fatalf("change username: %v", err)
	}
	if _, err := s.Login(ctx, "owner", "admin123"); err != nil {
		t.Fatalf("login with new username: %v", err)
	}
}

func TestResetPasswordRequiresMatchingEmail(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	// No email on file yet: reset must fail.
	if err := s.ResetPassword(ctx, "owner@example.com", "new"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}

	if err := s.UpdateEmailAndPhone(ctx, "admin123", "Owner@Example.com", "+90 555 000 00 00"); err != nil {
		t.Fatalf("update contact: %v", err)
	}
	if !s.EmailExists(ctx, "owner@example.com") {
		t.Fatal("expected case-insensitive email match")
	}

	if err := s.ResetPassword(ctx, "owner@example.com", "fresh"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := s.Login(ctx, "admin", "fresh"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestCredentialsRecoverFromCorruptBlob(t *testing.T) {
	s, kv := newTestService()
	ctx := context.Background()

	if err := kv.Put(ctx, CredentialsKey, []byte(`garbage`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	creds, err := s.Credentials(ctx)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.Username != "admin" || creds.Password != "admin123" {
		t.Fatalf("expected reset to default, got %+v", creds)
	}
}
