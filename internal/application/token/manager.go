// Package token implements the token lifecycle for journal sessions:
// cached-token reuse, refresh on expiry, and login-and-persist. The manager
// owns token freshness policy; the portal client only moves bytes.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrAuthFailed indicates the portal rejected the credentials or the
	// login call itself failed.
	ErrAuthFailed = errors.New("token: auth failed")

	// ErrRefreshFailed indicates the refresh call failed.
	ErrRefreshFailed = errors.New("token: refresh failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Grant is a token triple issued by the portal, plus the opaque city blob.
type Grant struct {
	AccessToken     string
	RefreshToken    string
	ExpiresInAccess int64 // seconds
	CityData        string
}

// PortalAuth is the slice of the portal client the manager needs.
type PortalAuth interface {
	Login(ctx context.Context, username, password string) (Grant, error)
	Refresh(ctx context.Context, refreshToken string) (Grant, error)
}

// Encryptor seals the password before it reaches storage.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager owns token freshness for all sessions.
type Manager struct {
	portal   PortalAuth
	sessions session.Repository
	cipher   Encryptor
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithClock overrides the manager's clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager.
func NewManager(portal PortalAuth, sessions session.Repository, cipher Encryptor, opts ...Option) *Manager {
	m := &Manager{
		portal:   portal,
		sessions: sessions,
		cipher:   cipher,
		logger:   slog.Default(),
		now:      timeutil.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates against the portal and persists the session for the
// chat. The password is stored in encrypted form only; every successful login
// overwrites the previous record.
func (m *Manager) Login(ctx context.Context, chatID int64, username, password string) (*session.Session, error) {
	grant, err := m.portal.Login(ctx, username, password)
	if err != nil {
		m.logger.Warn("journal login failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	encrypted, err := m.cipher.Encrypt(password)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt password: %v", ErrAuthFailed, err)
	}

	now := m.now()
	s := &session.Session{
		ChatID:            chatID,
		Login:             username,
		EncryptedPassword: encrypted,
		AccessToken:       grant.AccessToken,
		RefreshToken:      grant.RefreshToken,
		ExpiresAt:         now.UnixMilli() + grant.ExpiresInAccess*1000,
		CityData:          grant.CityData,
		UpdatedAt:         now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := m.sessions.Upsert(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info("journal login", "chat_id", chatID, "login", username)
	return s, nil
}

// EnsureValidToken returns a usable access token for the session. The cached
// token is reused without any network call while now < expiresAt (strict, no
// safety margin); otherwise exactly one refresh call is made and the new
// triple is persisted. The session is updated in place on refresh.
func (m *Manager) EnsureValidToken(ctx context.Context, s *session.Session) (string, error) {
	if s.TokenValid(m.now()) {
		return s.AccessToken, nil
	}
	return m.refresh(ctx, s)
}

// ForceRefresh discards the cached token and refreshes unconditionally.
// The fetch path uses it after a 403, when the portal no longer honors a
// token that still looks fresh locally.
func (m *Manager) ForceRefresh(ctx context.Context, s *session.Session) (string, error) {
	return m.refresh(ctx, s)
}

func (m *Manager) refresh(ctx context.Context, s *session.Session) (string, error) {
	grant, err := m.portal.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed", "chat_id", s.ChatID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	s.AccessToken = grant.AccessToken
	s.RefreshToken = grant.RefreshToken
	s.ExpiresAt = m.now().UnixMilli() + grant.ExpiresInAccess*1000

	upd := session.TokenUpdate{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
	if err := m.sessions.UpdateTokens(ctx, s.ChatID, upd); err != nil {
		return "", fmt.Errorf("persist tokens: %w", err)
	}

	m.logger.Info("token refreshed", "chat_id", s.ChatID)
	return s.AccessToken, nil
}
