// Package session contains the per-chat credential and token state persisted
// for every authenticated journal user. This package has zero external
// dependencies.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session exists for a chat.
	ErrNotFound = errors.New("session: not found")

	// ErrInvalidSession indicates a session record failed validation.
	ErrInvalidSession = errors.New("session: invalid record")
)

// Session is the persisted record for one Telegram chat: journal login,
// encrypted password, and the current token triple. Created on first
// successful login, overwritten on every login and refresh, never deleted.
type Session struct {
	// ChatID is the Telegram chat the session belongs to.
	ChatID int64

	// Login is the journal username.
	Login string

	// EncryptedPassword is the journal password in "ivHex:cipherHex" form.
	// The plaintext never reaches storage.
	EncryptedPassword string

	// AccessToken is the current bearer token for journal requests.
	AccessToken string

	// RefreshToken trades for a new token triple when the access token expires.
	RefreshToken string

	// ExpiresAt is the access token expiry instant in epoch milliseconds.
	ExpiresAt int64

	// CityData is the opaque city blob returned by the login endpoint,
	// stored verbatim.
	CityData string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenValid reports whether the cached access token is still usable at now.
// The comparison is a strict millisecond boundary with no safety margin, so a
// request issued at the exact expiry instant may still race an already-expired
// token at the portal; the fetch path's single 403 retry covers that case.
func (s *Session) TokenValid(now time.Time) bool {
	return s.AccessToken != "" && now.UnixMilli() < s.ExpiresAt
}

// Validate checks the invariants of a session record.
func (s *Session) Validate() error {
	if s.ChatID == 0 {
		return ErrInvalidSession
	}
	if s.Login == "" || s.EncryptedPassword == "" {
		return ErrInvalidSession
	}
	return nil
}

// TokenUpdate carries the fields overwritten by a successful refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Repository persists sessions keyed by chat identity.
type Repository interface {
	// Upsert creates or fully replaces the session for its chat.
	Upsert(ctx context.Context, s *Session) error

	// FindByChatID returns the session for a chat, or ErrNotFound.
	FindByChatID(ctx context.Context, chatID int64) (*Session, error)

	// UpdateTokens overwrites only the token triple for a chat.
	UpdateTokens(ctx context.Context, chatID int64, upd TokenUpdate) error
}
