package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
)

// fakePortal counts auth calls.
type fakePortal struct {
	loginCalls   int
	refreshCalls int
	loginErr     error
	refreshErr   error
	grant        Grant
}

func (f *fakePortal) Login(_ context.Context, _, _ string) (Grant, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return Grant{}, f.loginErr
	}
	return f.grant, nil
}

func (f *fakePortal) Refresh(_ context.Context, _ string) (Grant, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return Grant{}, f.refreshErr
	}
	return f.grant, nil
}

// fakeRepo stores sessions in a map.
type fakeRepo struct {
	upserts      int
	tokenUpdates int
	sessions     map[int64]*session.Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[int64]*session.Session)}
}

func (f *fakeRepo) Upsert(_ context.Context, s *session.Session) error {
	f.upserts++
	copied := *s
	f.sessions[s.ChatID] = &copied
	return nil
}

func (f *fakeRepo) FindByChatID(_ context.Context, chatID int64) (*session.Session, error) {
	s, ok := f.sessions[chatID]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeRepo) UpdateTokens(_ context.Context, chatID int64, upd session.TokenUpdate) error {
	f.tokenUpdates++
	if s, ok := f.sessions[chatID]; ok {
		s.AccessToken = upd.AccessToken
		s.RefreshToken = upd.RefreshToken
		s.ExpiresAt = upd.ExpiresAt
	}
	return nil
}

// fakeCipher reverses the plaintext, enough to prove it is not stored raw.
type fakeCipher struct{}

func (fakeCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestManager(portal *fakePortal, repo *fakeRepo) *Manager {
	return NewManager(portal, repo, fakeCipher{}, WithClock(func() time.Time { return testNow }))
}

func TestLogin_PersistsEncryptedSession(t *testing.T) {
	portal := &fakePortal{grant: Grant{
		AccessToken:     "acc-1",
		RefreshToken:    "ref-1",
		ExpiresInAccess: 3600,
		CityData:        `{"id":7}`,
	}}
	repo := newFakeRepo()
	manager := newTestManager(portal, repo)

	s, err := manager.Login(context.Background(), 42, "student", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.upserts)
	assert.Equal(t, "acc-1", s.AccessToken)
	assert.Equal(t, "ref-1", s.RefreshToken)
	assert.Equal(t, testNow.UnixMilli()+3600*1000, s.ExpiresAt)
	assert.Equal(t, `{"id":7}`, s.CityData)

	stored := repo.sessions[42]
	assert.Equal(t, "enc:hunter2", stored.EncryptedPassword)
	assert.NotEqual(t, "hunter2", stored.EncryptedPassword)
}

func TestLogin_PortalFailure(t *testing.T) {
	portal := &fakePortal{loginErr: errors.New("bad credentials")}
	repo := newFakeRepo()
	manager := newTestManager(portal, repo)

	_, err := manager.Login(context.Background(), 42, "student", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Zero(t, repo.upserts)
}

func TestEnsureValidToken_CachedNoNetwork(t *testing.T) {
	portal := &fakePortal{}
	repo := newFakeRepo()
	manager := newTestManager(portal, repo)

	s := &session.Session{
		ChatID:      42,
		AccessToken: "acc-cached",
		ExpiresAt:   testNow.UnixMilli() + 1, // still strictly in the future
	}

	got, err := manager.EnsureValidToken(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "acc-cached", got)
	assert.Zero(t, portal.refreshCalls)
	assert.Zero(t, repo.tokenUpdates)
}

func TestEnsureValidToken_ExpiredRefreshesOnce(t *testing.T) {
	portal := &fakePortal{grant: Grant{
		AccessToken:     "acc-2",
		RefreshToken:    "ref-2",
		ExpiresInAccess: 1800,
	}}
	repo := newFakeRepo()
	repo.sessions[42] = &session.Session{ChatID: 42}
	manager := newTestManager(portal, repo)

	s := &session.Session{
		ChatID:       42,
		AccessToken:  "acc-stale",
		RefreshToken: "ref-1",
		ExpiresAt:    testNow.UnixMilli(), // exact boundary counts as expired
	}

	got, err := manager.EnsureValidToken(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "acc-2", got)
	assert.Equal(t, 1, portal.refreshCalls)
	assert.Equal(t, 1, repo.tokenUpdates)

	// Session mutated in place and persisted.
	assert.Equal(t, "acc-2", s.AccessToken)
	assert.Equal(t, "ref-2", s.RefreshToken)
	assert.Equal(t, testNow.UnixMilli()+1800*1000, s.ExpiresAt)
	assert.Equal(t, "acc-2", repo.sessions[42].AccessToken)
}

func TestEnsureValidToken_RefreshFailure(t *testing.T) {
	portal := &fakePortal{refreshErr: errors.New("portal down")}
	repo := newFakeRepo()
	manager := newTestManager(portal, repo)

	s := &session.Session{ChatID: 42, RefreshToken: "ref-1", ExpiresAt: 0}

	_, err := manager.EnsureValidToken(context.Background(), s)
	assert.ErrorIs(t, err, ErrRefreshFailed)
}

func TestForceRefresh_AlwaysCallsPortal(t *testing.T) {
	portal := &fakePortal{grant: Grant{AccessToken: "acc-3", RefreshToken: "ref-3", ExpiresInAccess: 60}}
	repo := newFakeRepo()
	repo.sessions[42] = &session.Session{ChatID: 42}
	manager := newTestManager(portal, repo)

	// Token looks perfectly fresh locally, refresh happens anyway.
	s := &session.Session{
		ChatID:       42,
		AccessToken:  "acc-fresh",
		RefreshToken: "ref-1",
		ExpiresAt:    testNow.UnixMilli() + 10_000_000,
	}

	got, err := manager.ForceRefresh(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "acc-3", got)
	assert.Equal(t, 1, portal.refreshCalls)
}
