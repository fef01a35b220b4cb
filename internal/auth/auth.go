// Package auth manages the single admin credential and its session.
// There is one credential record and at most one live session; passwords
// are compared as plain text against the stored record, exactly as the
// dashboard has always worked.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"estate-hub/internal/kvstore"
	"estate-hub/internal/metrics"

	"github.com/google/uuid"
)

const (
	// CredentialsKey is the storage key holding the admin credential.
	CredentialsKey = "real_state_credentials"
	// SessionKey is the storage key holding the live session.
	SessionKey = "real_state_auth"

	defaultUsername = "admin"
	defaultPassword = "admin123"
)

// ErrInvalidCredential indicates a password (or email, for resets) that
// does not match the stored record.
var ErrInvalidCredential = errors.New("invalid credential")

// Credentials is the single global admin record.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Session is the record written on login and erased on logout.
type Session struct {
	Username        string    `json:"username"`
	Token           string    `json:"token"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	LoginTime       time.Time `json:"loginTime"`
}

// Service provides credential and session operations over the persistent
// local store.
type Service struct {
	kv      kvstore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates the auth service.
func NewService(kv kvstore.Store, logger *slog.Logger, metricRegistry *metrics.Metrics) *Service {
	return &Service{
		kv:      kv,
		logger:  logger.With("component", "auth"),
		metrics: metricRegistry,
	}
}

// Credentials returns the stored admin record, writing the default
// (admin/admin123, empty email and phone) when nothing valid is stored.
func (s *Service) Credentials(ctx context.Context) (Credentials, error) {
	raw, ok, err := s.kv.Get(ctx, CredentialsKey)
	if err != nil {
		return Credentials{}, err
	}
	if ok {
		var creds Credentials
		if err := json.Unmarshal(raw, &creds); err == nil && creds.Username != "" {
			return creds, nil
		}
		s.logger.Warn("stored credentials unreadable, resetting to default")
	}

	creds := Credentials{Username: defaultUsername, Password: defaultPassword}
	if err := s.saveCredentials(ctx, creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Login checks the username and password against the stored record. On
// success a session record with a fresh token is persisted and returned;
// on mismatch nothing is written and ErrInvalidCredential is returned.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	if username != creds.Username || password != creds.Password {
		if s.metrics != nil {
			s.metrics.AuthAttempts.WithLabelValues("denied").Inc()
		}
		return nil, ErrInvalidCredential
	}

	session := Session{
		Username:        username,
		Token:           uuid.NewString(),
		IsAuthenticated: true,
		LoginTime:       time.Now().UTC(),
	}
	blob, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Put(ctx, SessionKey, blob); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AuthAttempts.WithLabelValues("ok").Inc()
	}
	s.logger.Info("admin logged in", "username", username)
	return &session, nil
}

// Logout erases the session record.
func (s *Service) Logout(ctx context.Context) error {
	return s.kv.Delete(ctx, SessionKey)
}

// IsAuthenticated reads the session record, defaulting to false on
// absence or parse failure.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	session := s.CurrentUser(ctx)
	return session != nil && session.IsAuthenticated
}

// Verify reports whether token matches the live session.
func (s *Service) Verify(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	session := s.CurrentUser(ctx)
	return session != nil && session.IsAuthenticated && session.Token == token
}

// CurrentUser returns the live session, or nil when there is none.
func (s *Service) CurrentUser(ctx context.Context) *Session {
	raw, ok, err := s.kv.Get(ctx, SessionKey)
	if err != nil || !ok {
		return nil
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil
	}
	return &session
}

// ChangePassword sets a new password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return s.updateVerified(ctx, currentPassword, func(creds *Credentials) {
		creds.Password = newPassword
	})
}

// ChangeUsername sets a new username after verifying the current
// password.
func (s *Service) ChangeUsername(ctx context.Context, currentPassword, newUsername string) error {
	return s.updateVerified(ctx, currentPassword, func(creds *Credentials) {
		creds.Username = newUsername
	})
}

// UpdateEmailAndPhone sets the contact details after verifying the
// current password.
func (s *Service) UpdateEmailAndPhone(ctx context.Context, currentPassword, email, phone string) error {
	return s.updateVerified(ctx, currentPassword, func(creds *Credentials) {
		creds.Email = email
		creds.Phone = phone
	})
}

// EmailExists reports whether email matches the stored, non-empty admin
// email (case-insensitive).
func (s *Service) EmailExists(ctx context.Context, email string) bool {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return false
	}
	stored := strings.TrimSpace(creds.Email)
	return stored != "" && strings.EqualFold(stored, email)
}

// ResetPassword is the "forgot password" entry point: it validates the
// supplied email against the one on file instead of the password. Not a
// secure recovery flow, just a different gate on the same operation.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if !s.EmailExists(ctx, email) {
		return ErrInvalidCredential
	}
	creds, err := s.Credentials(ctx)
	if err != nil {
		return err
	}
	creds.Password = newPassword
	return s.saveCredentials(ctx, creds)
}

func (s *Service) updateVerified(ctx context.Context, currentPassword string, mutate func(*Credentials)) error {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return err
	}
	if creds.Password != currentPassword {
		return ErrInvalidCredential
	}
	mutate(&creds)
	return s.saveCredentials(ctx, creds)
}

func (s *Service) saveCredentials(ctx context.Context, creds Credentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, CredentialsKey, blob)
}
