package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN HANDLER
// Handles /login command - authenticates against the journal and stores
// the session for later schedule requests.
// ══════════════════════════════════════════════════════════════════════════════

// Authenticator performs the portal login and persists the session.
type Authenticator interface {
	Login(ctx context.Context, chatID int64, username, password string) (*session.Session, error)
}

// LoginHandler handles the /login command.
type LoginHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewLoginHandler creates a new LoginHandler with dependencies.
func NewLoginHandler(auth Authenticator, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		auth:   auth,
		logger: logger,
	}
}

// LoginRequest contains the parsed /login command data.
type LoginRequest struct {
	// ChatID is the chat ID for sending responses.
	ChatID int64

	// Args is the raw text after the command.
	Args string
}

// LoginResponse contains the response to send back.
type LoginResponse struct {
	// Text is the message text.
	Text string

	// IsError indicates if this is an error response.
	IsError bool
}

// Handle processes the /login command.
func (h *LoginHandler) Handle(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	parts := strings.Fields(req.Args)
	if len(parts) < 2 {
		return &LoginResponse{
			Text:    "Использование: /login <username> <password>",
			IsError: true,
		}, nil
	}

	username := parts[0]
	password := parts[1]

	if _, err := h.auth.Login(ctx, req.ChatID, username, password); err != nil {
		h.logger.Warn("login failed", "chat_id", req.ChatID, "error", err)
		return &LoginResponse{
			Text:    "❌ Не удалось авторизоваться",
			IsError: true,
		}, nil
	}

	return &LoginResponse{Text: "✅ Успешно авторизованы!"}, nil
}
