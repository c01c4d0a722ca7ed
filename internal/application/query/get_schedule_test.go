package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystat-hub/mystat-reminder-bot/internal/application/token"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/schedule"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeSessions struct {
	session *session.Session
}

func (f *fakeSessions) Upsert(context.Context, *session.Session) error { return nil }

func (f *fakeSessions) FindByChatID(_ context.Context, chatID int64) (*session.Session, error) {
	if f.session == nil || f.session.ChatID != chatID {
		return nil, session.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeSessions) UpdateTokens(context.Context, int64, session.TokenUpdate) error {
	return nil
}

type fakeTokens struct {
	ensureCalls int
	forceCalls  int
	ensureErr   error
	forceErr    error
}

func (f *fakeTokens) EnsureValidToken(_ context.Context, _ *session.Session) (string, error) {
	f.ensureCalls++
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	return "acc-1", nil
}

func (f *fakeTokens) ForceRefresh(_ context.Context, _ *session.Session) (string, error) {
	f.forceCalls++
	if f.forceErr != nil {
		return "", f.forceErr
	}
	return "acc-2", nil
}

// fakePortal replays a scripted sequence of responses.
type fakePortal struct {
	calls   int
	tokens  []string // bearer token seen per call
	replies []func() ([]schedule.Lesson, error)
}

func (f *fakePortal) ScheduleByDate(_ context.Context, accessToken, _ string) ([]schedule.Lesson, error) {
	f.tokens = append(f.tokens, accessToken)
	reply := f.replies[f.calls]
	f.calls++
	return reply()
}

type fakeReminders struct {
	calls   int
	lessons []schedule.Lesson
}

func (f *fakeReminders) Schedule(_ int64, _ string, lessons []schedule.Lesson) {
	f.calls++
	f.lessons = lessons
}

type fakeCache struct {
	stored map[string][]schedule.Lesson
	sets   int
}

func (f *fakeCache) GetLessons(_ context.Context, _ int64, date string) ([]schedule.Lesson, bool, error) {
	lessons, ok := f.stored[date]
	return lessons, ok, nil
}

func (f *fakeCache) SetLessons(_ context.Context, _ int64, date string, lessons []schedule.Lesson) error {
	f.sets++
	if f.stored == nil {
		f.stored = make(map[string][]schedule.Lesson)
	}
	f.stored[date] = lessons
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

var testLessons = []schedule.Lesson{
	{Ordinal: 1, StartsAt: "09:00", EndsAt: "10:20", Subject: "Go", Teacher: "Ivanov I.I.", Room: "304"},
	{Ordinal: 2, StartsAt: "10:30", EndsAt: "11:50", Subject: "Databases", Teacher: "Petrova A.A.", Room: "201"},
}

func ok(lessons []schedule.Lesson) func() ([]schedule.Lesson, error) {
	return func() ([]schedule.Lesson, error) { return lessons, nil }
}

func fail(err error) func() ([]schedule.Lesson, error) {
	return func() ([]schedule.Lesson, error) { return nil, err }
}

func authedSessions() *fakeSessions {
	return &fakeSessions{session: &session.Session{ChatID: 42, Login: "student", EncryptedPassword: "aa:bb"}}
}

func newHandler(sessions session.Repository, tokens TokenManager, portal PortalSchedule, reminders ReminderScheduler, cache ScheduleCache) *GetScheduleHandler {
	return NewGetScheduleHandler(sessions, tokens, portal, reminders, cache, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestHandle_NotAuthenticated(t *testing.T) {
	handler := newHandler(&fakeSessions{}, &fakeTokens{}, &fakePortal{}, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestHandle_InvalidQuery(t *testing.T) {
	handler := newHandler(&fakeSessions{}, &fakeTokens{}, &fakePortal{}, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "10.03.2025"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestHandle_Success(t *testing.T) {
	tokens := &fakeTokens{}
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){ok(testLessons)}}
	reminders := &fakeReminders{}
	handler := newHandler(authedSessions(), tokens, portal, reminders, nil)

	dto, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	require.NoError(t, err)

	assert.False(t, dto.Empty)
	assert.Equal(t, 2, dto.Lessons)
	assert.Contains(t, dto.Text, "Расписание на 2025-03-10")
	assert.Contains(t, dto.Text, "Go")
	assert.Contains(t, dto.Text, "09:00 – 10:20")

	assert.Equal(t, 1, tokens.ensureCalls)
	assert.Zero(t, tokens.forceCalls)
	assert.Equal(t, 1, reminders.calls)
	assert.Len(t, reminders.lessons, 2)
}

func TestHandle_EmptyDay(t *testing.T) {
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){ok(nil)}}
	reminders := &fakeReminders{}
	handler := newHandler(authedSessions(), &fakeTokens{}, portal, reminders, nil)

	dto, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	require.NoError(t, err)

	assert.True(t, dto.Empty)
	assert.Empty(t, dto.Text)
	assert.Zero(t, reminders.calls)
}

func TestHandle_ForbiddenOnce_RefreshAndRetry(t *testing.T) {
	tokens := &fakeTokens{}
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){
		fail(shared.ErrForbidden),
		ok(testLessons),
	}}
	handler := newHandler(authedSessions(), tokens, portal, &fakeReminders{}, nil)

	dto, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	require.NoError(t, err)

	assert.Equal(t, 2, dto.Lessons)
	assert.Equal(t, 1, tokens.forceCalls)
	assert.Equal(t, 2, portal.calls)
	// The retried fetch carries the refreshed token.
	assert.Equal(t, []string{"acc-1", "acc-2"}, portal.tokens)
}

func TestHandle_ForbiddenTwice_Terminal(t *testing.T) {
	tokens := &fakeTokens{}
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){
		fail(shared.ErrForbidden),
		fail(shared.ErrForbidden),
	}}
	handler := newHandler(authedSessions(), tokens, portal, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	assert.ErrorIs(t, err, ErrFetchFailed)

	// Exactly one forced refresh, exactly two fetches, no third attempt.
	assert.Equal(t, 1, tokens.forceCalls)
	assert.Equal(t, 2, portal.calls)
}

func TestHandle_NonForbiddenFailure_NoRetry(t *testing.T) {
	tokens := &fakeTokens{}
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){
		fail(errors.New("status 500")),
	}}
	handler := newHandler(authedSessions(), tokens, portal, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Zero(t, tokens.forceCalls)
	assert.Equal(t, 1, portal.calls)
}

func TestHandle_RefreshFailureAfterForbidden(t *testing.T) {
	tokens := &fakeTokens{forceErr: token.ErrRefreshFailed}
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){
		fail(shared.ErrForbidden),
	}}
	handler := newHandler(authedSessions(), tokens, portal, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	assert.ErrorIs(t, err, token.ErrRefreshFailed)
	assert.Equal(t, 1, portal.calls)
}

func TestHandle_TokenUnavailable(t *testing.T) {
	tokens := &fakeTokens{ensureErr: token.ErrRefreshFailed}
	handler := newHandler(authedSessions(), tokens, &fakePortal{}, &fakeReminders{}, nil)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	assert.ErrorIs(t, err, token.ErrRefreshFailed)
}

func TestHandle_CacheHit_SkipsPortalButSchedulesReminders(t *testing.T) {
	portal := &fakePortal{}
	reminders := &fakeReminders{}
	cache := &fakeCache{stored: map[string][]schedule.Lesson{"2025-03-10": testLessons}}
	handler := newHandler(authedSessions(), &fakeTokens{}, portal, reminders, cache)

	dto, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	require.NoError(t, err)

	assert.Equal(t, 2, dto.Lessons)
	assert.Zero(t, portal.calls)
	assert.Equal(t, 1, reminders.calls)
}

func TestHandle_CacheMiss_PopulatesCache(t *testing.T) {
	portal := &fakePortal{replies: []func() ([]schedule.Lesson, error){ok(testLessons)}}
	cache := &fakeCache{}
	handler := newHandler(authedSessions(), &fakeTokens{}, portal, &fakeReminders{}, cache)

	_, err := handler.Handle(context.Background(), GetScheduleQuery{ChatID: 42, Date: "2025-03-10"})
	require.NoError(t, err)

	assert.Equal(t, 1, portal.calls)
	assert.Equal(t, 1, cache.sets)
}
