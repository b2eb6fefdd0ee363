// Package service: authentication business logic.
//
// AuthService is the session-scoped access controller:
//
//	AuthHandler (HTTP) → AuthService → auth.Credentials (who may log in)
//	                                 ↘ session.Store    (live sessions)
//	                                 ↘ auth.TokenService (signed cookie value)
//
// SESSION LIFECYCLE:
//
//	Authenticate ──▶ Active ──Revoke──▶ Revoked
//	                   │
//	                   └──ttl passes──▶ Expired
//
// Revoked and Expired are terminal: Resolve answers "anonymous" for both and
// there is no way back to Active with the same token.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/auth"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/session"
)

// DefaultSessionTTL is how long a login stays valid.
const DefaultSessionTTL = 12 * time.Hour

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - creds    *auth.Credentials   → configured username/password pairs
//   - tokens   *auth.TokenService  → sign/verify the cookie value
//   - sessions session.Store       → memory or redis session records
//   - ttl      time.Duration       → session lifetime
//   - logger   *slog.Logger        → structured logging
type AuthService struct {
	creds    *auth.Credentials
	tokens   *auth.TokenService
	sessions session.Store
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

var _ auth.Resolver = (*AuthService)(nil)

// NewAuthService creates an AuthService. A non-positive ttl means
// DefaultSessionTTL.
func NewAuthService(
	creds *auth.Credentials,
	tokens *auth.TokenService,
	sessions session.Store,
	ttl time.Duration,
	logger *slog.Logger,
) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		creds:    creds,
		tokens:   tokens,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// TTL returns the configured session lifetime. The handler uses it as the
// cookie Max-Age.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// AuthResult bundles the new session with the signed token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	Session *model.Session
	Token   string
}

// Authenticate checks credentials and opens a new session.
//
// The username is trimmed; the password is compared as given.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("username", "Username and password are required.")
	}

	if !s.creds.Check(username, password) {
		s.logger.Warn("login rejected", slog.String("username", username))
		return nil, apperror.InvalidCredentials()
	}

	now := s.now().UTC()
	sess := &model.Session{
		ID:        xid.New().String(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokens.Generate(sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Error("failed to save session",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("username", username),
		slog.String("session_id", sess.ID),
	)
	return &AuthResult{Session: sess, Token: token}, nil
}

// Resolve maps a token to the principal of its live session.
//
// It never fails: a bad signature, an unknown or expired session and even a
// store outage all come back as ("", false). Outages are logged so they do
// not vanish silently.
func (s *AuthService) Resolve(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	id, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("session token rejected", slog.String("error", err.Error()))
		return "", false
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Error("failed to load session",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}

	if sess.Expired(s.now()) {
		return "", false
	}
	return sess.Username, true
}

// Revoke ends the session named by token. Unknown, expired or malformed
// tokens are ignored, so logout always succeeds.
func (s *AuthService) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}

	id, err := s.tokens.Validate(token)
	if err != nil {
		return
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete session",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("user logged out", slog.String("session_id", id))
}

// RequireAuthenticated is Resolve for callers that cannot continue
// anonymously.
func (s *AuthService) RequireAuthenticated(ctx context.Context, token string) (string, error) {
	principal, ok := s.Resolve(ctx, token)
	if !ok {
		return "", apperror.Unauthenticated("You must be logged in.")
	}
	return principal, nil
}
