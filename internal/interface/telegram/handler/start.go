// Package handler contains Telegram command handlers.
package handler

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start command - greets the user and lists available commands.
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles the /start command.
type StartHandler struct{}

// NewStartHandler creates a new StartHandler.
func NewStartHandler() *StartHandler {
	return &StartHandler{}
}

// StartRequest contains the parsed /start command data.
type StartRequest struct {
	// ChatID is the chat ID for sending responses.
	ChatID int64

	// FirstName is the user's first name, if known.
	FirstName string
}

// StartResponse contains the response to send back.
type StartResponse struct {
	// Text is the message text.
	Text string
}

// Handle processes the /start command.
func (h *StartHandler) Handle(_ context.Context, req StartRequest) (*StartResponse, error) {
	greeting := "👋 Привет"
	if req.FirstName != "" {
		greeting += ", " + req.FirstName
	}

	text := greeting + "! Я напомню тебе о парах за 5 минут до начала.\n\n" +
		"Команды:\n" +
		"/login <username> <password> - авторизация в журнале\n" +
		"/today - расписание на сегодня\n" +
		"/tomorrow - расписание на завтра"

	return &StartResponse{Text: text}, nil
}
