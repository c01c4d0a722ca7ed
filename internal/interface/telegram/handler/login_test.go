package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/session"
)

type fakeAuthenticator struct {
	chatID   int64
	username string
	password string
	calls    int
	err      error
}

func (f *fakeAuthenticator) Login(_ context.Context, chatID int64, username, password string) (*session.Session, error) {
	f.calls++
	f.chatID = chatID
	f.username = username
	f.password = password
	if f.err != nil {
		return nil, f.err
	}
	return &session.Session{ChatID: chatID, Login: username}, nil
}

func TestLoginHandlerSuccess(t *testing.T) {
	auth := &fakeAuthenticator{}
	h := NewLoginHandler(auth, nil)

	resp, err := h.Handle(context.Background(), LoginRequest{
		ChatID: 42,
		Args:   "student@example.com s3cret",
	})
	require.NoError(t, err)

	assert.False(t, resp.IsError)
	assert.Equal(t, "✅ Успешно авторизованы!", resp.Text)
	assert.Equal(t, int64(42), auth.chatID)
	assert.Equal(t, "student@example.com", auth.username)
	assert.Equal(t, "s3cret", auth.password)
}

func TestLoginHandlerUsage(t *testing.T) {
	auth := &fakeAuthenticator{}
	h := NewLoginHandler(auth, nil)

	for _, args := range []string{"", "onlyuser", "   "} {
		resp, err := h.Handle(context.Background(), LoginRequest{ChatID: 42, Args: args})
		require.NoError(t, err)

		assert.True(t, resp.IsError)
		assert.Equal(t, "Использование: /login <username> <password>", resp.Text)
	}

	assert.Zero(t, auth.calls)
}

func TestLoginHandlerAuthFailure(t *testing.T) {
	auth := &fakeAuthenticator{err: errors.New("401")}
	h := NewLoginHandler(auth, nil)

	resp, err := h.Handle(context.Background(), LoginRequest{
		ChatID: 42,
		Args:   "student wrong",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsError)
	assert.Equal(t, "❌ Не удалось авторизоваться", resp.Text)
}

func TestStartHandlerGreeting(t *testing.T) {
	h := NewStartHandler()

	resp, err := h.Handle(context.Background(), StartRequest{ChatID: 42, FirstName: "Аружан"})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "Аружан")
	assert.Contains(t, resp.Text, "/login")
	assert.Contains(t, resp.Text, "/today")
	assert.Contains(t, resp.Text, "/tomorrow")
}
