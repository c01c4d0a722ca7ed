package postgres

import (
	"context"
	"fmt"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Upsert creates or fully replaces the session for its chat. Every successful
// login overwrites whatever record was there before.
func (r *SessionRepository) Upsert(ctx context.Context, s *session.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			chat_id, login, password_encrypted, access_token,
			refresh_token, expires_at, city_data, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			login = EXCLUDED.login,
			password_encrypted = EXCLUDED.password_encrypted,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			city_data = EXCLUDED.city_data,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		s.ChatID,
		s.Login,
		s.EncryptedPassword,
		s.AccessToken,
		s.RefreshToken,
		s.ExpiresAt,
		s.CityData,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// FindByChatID returns the session for a chat, or session.ErrNotFound.
func (r *SessionRepository) FindByChatID(ctx context.Context, chatID int64) (*session.Session, error) {
	query := `
		SELECT chat_id, login, password_encrypted,
		       COALESCE(access_token, ''), COALESCE(refresh_token, ''),
		       COALESCE(expires_at, 0), COALESCE(city_data, ''),
		       created_at, updated_at
		FROM sessions
		WHERE chat_id = $1
	`

	var s session.Session
	err := r.conn.QueryRow(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.Login,
		&s.EncryptedPassword,
		&s.AccessToken,
		&s.RefreshToken,
		&s.ExpiresAt,
		&s.CityData,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &s, nil
}

// UpdateTokens overwrites only the token triple for a chat.
func (r *SessionRepository) UpdateTokens(ctx context.Context, chatID int64, upd session.TokenUpdate) error {
	query := `
		UPDATE sessions
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = NOW()
		WHERE chat_id = $1
	`

	tag, err := r.conn.Exec(ctx, query, chatID, upd.AccessToken, upd.RefreshToken, upd.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}

	return nil
}
