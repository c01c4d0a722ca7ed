// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/schedule"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/shared"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCHEDULE QUERY
// Получает расписание на дату: сессия → токен → журнал → напоминания → текст.
// Единственный внутренний ретрай во всём боте живёт здесь: один 403 от
// журнала прощается, второй - нет.
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotAuthenticated is returned when the chat has no stored session.
	ErrNotAuthenticated = errors.New("query: not authenticated")

	// ErrFetchFailed is the terminal error for an unrecoverable schedule fetch.
	ErrFetchFailed = errors.New("query: schedule fetch failed")
)

// GetScheduleQuery contains the parameters of a schedule request.
type GetScheduleQuery struct {
	// ChatID identifies the requesting chat.
	ChatID int64

	// Date is the journal date, YYYY-MM-DD.
	Date string
}

// Validate checks the query parameters.
func (q *GetScheduleQuery) Validate() error {
	if q.ChatID == 0 {
		return fmt.Errorf("%w: chat id required", shared.ErrInvalidInput)
	}
	if _, err := timeutil.ParseDate(q.Date); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// ScheduleDTO is the rendered result of a schedule request.
type ScheduleDTO struct {
	Date    string
	Empty   bool
	Lessons int
	Text    string
}

// ─────────────────────────────────────────────────────────────────────────────
// Dependencies
// ─────────────────────────────────────────────────────────────────────────────

// PortalSchedule is the slice of the portal client the handler needs.
type PortalSchedule interface {
	ScheduleByDate(ctx context.Context, accessToken, date string) ([]schedule.Lesson, error)
}

// TokenManager supplies valid access tokens for sessions.
type TokenManager interface {
	EnsureValidToken(ctx context.Context, s *session.Session) (string, error)
	ForceRefresh(ctx context.Context, s *session.Session) (string, error)
}

// ReminderScheduler registers pre-lesson alerts for the fetched day.
type ReminderScheduler interface {
	Schedule(chatID int64, date string, lessons []schedule.Lesson)
}

// ScheduleCache is an optional short-TTL cache in front of the portal fetch.
// A hit still passes through ReminderScheduler, so reminder dedup semantics
// are unchanged.
type ScheduleCache interface {
	GetLessons(ctx context.Context, chatID int64, date string) ([]schedule.Lesson, bool, error)
	SetLessons(ctx context.Context, chatID int64, date string, lessons []schedule.Lesson) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Handler
// ─────────────────────────────────────────────────────────────────────────────

// fetchState is the retry state machine of a single request. A 403 moves the
// request from stateInitial to stateRetriedOnce; every outcome after that is
// terminal, so chronically invalid credentials cannot loop.
type fetchState int

const (
	stateInitial fetchState = iota
	stateRetriedOnce
)

// GetScheduleHandler composes tokens, portal, and reminder registry into one
// "get schedule for date" operation.
type GetScheduleHandler struct {
	sessions  session.Repository
	tokens    TokenManager
	portal    PortalSchedule
	reminders ReminderScheduler
	cache     ScheduleCache // may be nil
	logger    *slog.Logger
}

// NewGetScheduleHandler creates the handler. cache may be nil.
func NewGetScheduleHandler(
	sessions session.Repository,
	tokens TokenManager,
	portal PortalSchedule,
	reminders ReminderScheduler,
	cache ScheduleCache,
	logger *slog.Logger,
) *GetScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetScheduleHandler{
		sessions:  sessions,
		tokens:    tokens,
		portal:    portal,
		reminders: reminders,
		cache:     cache,
		logger:    logger,
	}
}

// Handle executes the query.
func (h *GetScheduleHandler) Handle(ctx context.Context, q GetScheduleQuery) (*ScheduleDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	log := h.logger.With(
		"request_id", uuid.NewString(),
		"chat_id", q.ChatID,
		"date", q.Date,
	)

	s, err := h.sessions.FindByChatID(ctx, q.ChatID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: load session: %v", ErrFetchFailed, err)
	}

	accessToken, err := h.tokens.EnsureValidToken(ctx, s)
	if err != nil {
		log.Error("token unavailable", "error", err)
		return nil, err
	}

	lessons, err := h.fetchLessons(ctx, log, s, accessToken, q)
	if err != nil {
		return nil, err
	}

	if len(lessons) == 0 {
		log.Info("schedule fetched", "lessons", 0)
		return &ScheduleDTO{Date: q.Date, Empty: true}, nil
	}

	h.reminders.Schedule(q.ChatID, q.Date, lessons)
	log.Info("schedule fetched", "lessons", len(lessons))

	return &ScheduleDTO{
		Date:    q.Date,
		Lessons: len(lessons),
		Text:    renderSchedule(q.Date, lessons),
	}, nil
}

// fetchLessons consults the cache, then the portal, forgiving exactly one 403.
func (h *GetScheduleHandler) fetchLessons(
	ctx context.Context,
	log *slog.Logger,
	s *session.Session,
	accessToken string,
	q GetScheduleQuery,
) ([]schedule.Lesson, error) {
	if h.cache != nil {
		lessons, hit, err := h.cache.GetLessons(ctx, q.ChatID, q.Date)
		if err != nil {
			log.Warn("schedule cache read failed", "error", err)
		} else if hit {
			log.Debug("schedule cache hit")
			return lessons, nil
		}
	}

	state := stateInitial
	for {
		lessons, err := h.portal.ScheduleByDate(ctx, accessToken, q.Date)
		if err == nil {
			if h.cache != nil {
				if cerr := h.cache.SetLessons(ctx, q.ChatID, q.Date, lessons); cerr != nil {
					log.Warn("schedule cache write failed", "error", cerr)
				}
			}
			return lessons, nil
		}

		if errors.Is(err, shared.ErrForbidden) && state == stateInitial {
			state = stateRetriedOnce
			log.Info("portal returned 403, forcing token refresh")

			accessToken, err = h.tokens.ForceRefresh(ctx, s)
			if err != nil {
				return nil, err
			}
			continue
		}

		log.Error("schedule fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
}

// renderSchedule formats the fetched day as the reply text.
func renderSchedule(date string, lessons []schedule.Lesson) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Расписание на %s:\n\n", date)
	for _, lesson := range lessons {
		fmt.Fprintf(&b, "🔢 Пара: %d\n", lesson.Ordinal)
		fmt.Fprintf(&b, "⏰ %s – %s\n", lesson.StartsAt, lesson.EndsAt)
		fmt.Fprintf(&b, "📖 %s\n", lesson.Subject)
		fmt.Fprintf(&b, "👨‍🏫 %s\n\n", lesson.Teacher)
	}
	return strings.TrimSpace(b.String())
}
