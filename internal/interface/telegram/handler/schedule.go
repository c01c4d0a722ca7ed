package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mystat-hub/mystat-reminder-bot/internal/application/query"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE HANDLER
// Handles /today and /tomorrow commands - fetches the journal schedule
// for the requested day and arms pre-lesson reminders as a side effect.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleQueries executes schedule queries.
type ScheduleQueries interface {
	Handle(ctx context.Context, q query.GetScheduleQuery) (*query.ScheduleDTO, error)
}

// ScheduleHandler handles the /today and /tomorrow commands.
type ScheduleHandler struct {
	queries ScheduleQueries
	logger  *slog.Logger
}

// NewScheduleHandler creates a new ScheduleHandler with dependencies.
func NewScheduleHandler(queries ScheduleQueries, logger *slog.Logger) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{
		queries: queries,
		logger:  logger,
	}
}

// ScheduleRequest contains the parsed /today or /tomorrow command data.
type ScheduleRequest struct {
	// ChatID is the chat ID for sending responses.
	ChatID int64

	// OffsetDays selects the day: 0 for today, 1 for tomorrow.
	OffsetDays int
}

// ScheduleResponse contains the response to send back.
type ScheduleResponse struct {
	// Text is the message text.
	Text string

	// IsError indicates if this is an error response.
	IsError bool
}

// Handle processes the /today or /tomorrow command.
func (h *ScheduleHandler) Handle(ctx context.Context, req ScheduleRequest) (*ScheduleResponse, error) {
	date := timeutil.TodayString(req.OffsetDays)

	dto, err := h.queries.Handle(ctx, query.GetScheduleQuery{
		ChatID: req.ChatID,
		Date:   date,
	})
	if err != nil {
		if errors.Is(err, query.ErrNotAuthenticated) {
			return &ScheduleResponse{
				Text:    "❌ Сначала авторизуйтесь",
				IsError: true,
			}, nil
		}

		h.logger.Warn("schedule request failed",
			"chat_id", req.ChatID,
			"date", date,
			"error", err,
		)
		return &ScheduleResponse{
			Text:    "❌ Не удалось получить расписание",
			IsError: true,
		}, nil
	}

	if dto.Empty {
		return &ScheduleResponse{
			Text: fmt.Sprintf("📭 На %s занятий нет", dto.Date),
		}, nil
	}

	return &ScheduleResponse{Text: dto.Text}, nil
}
