// Package mystat implements the MyStat journal API client.
// This package handles all communication with the top-academy journal portal:
// credential login, token refresh, and schedule-by-date fetches.
package mystat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/schedule"
	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the MyStat API client.
type ClientConfig struct {
	// BaseURL is the journal API base URL (default: https://msapi.top-academy.ru)
	BaseURL string

	// ApplicationKey identifies the client application to the auth endpoints.
	ApplicationKey string

	// Origin and Referer mirror the journal web client; the portal rejects
	// requests without them.
	Origin  string
	Referer string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(applicationKey string) ClientConfig {
	return ClientConfig{
		BaseURL:        "https://msapi.top-academy.ru",
		ApplicationKey: applicationKey,
		Origin:         "https://journal.top-academy.ru",
		Referer:        "https://journal.top-academy.ru/",
		Timeout:        30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNoAccessToken indicates an auth response without an access token.
	ErrNoAccessToken = errors.New("mystat: no access_token in response")

	// ErrForbidden indicates an HTTP 403 from the portal. The schedule
	// orchestrator treats exactly this error as "refresh and retry once".
	ErrForbidden = shared.ErrForbidden
)

// StatusError is a non-2xx portal response other than 403.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mystat: status %d: %s", e.StatusCode, e.Body)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the MyStat journal API client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new MyStat API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Login authenticates with journal credentials and returns the token triple.
// Returns ErrNoAccessToken when the portal answers without a token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	body := loginRequest{
		ApplicationKey: c.config.ApplicationKey,
		IDCity:         nil,
		Username:       username,
		Password:       password,
	}

	var auth AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v2/auth/login", "", body, &auth); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if auth.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return &auth, nil
}

// Refresh trades a refresh token for a new token triple.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	body := refreshRequest{
		RefreshToken:   refreshToken,
		ApplicationKey: c.config.ApplicationKey,
	}

	var auth AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v2/auth/refresh", "", body, &auth); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if auth.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return &auth, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleByDate fetches the lessons for a YYYY-MM-DD date with the given
// bearer token. Payloads are validated into domain lessons here so nothing
// untyped enters the core; an invalid entry fails the whole fetch.
func (c *Client) ScheduleByDate(ctx context.Context, accessToken, date string) ([]schedule.Lesson, error) {
	params := url.Values{}
	params.Set("date_filter", date)
	path := "/api/v2/schedule/operations/get-by-date?" + params.Encode()

	var dtos []LessonDTO
	if err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &dtos); err != nil {
		return nil, fmt.Errorf("schedule by date %s: %w", date, err)
	}

	lessons := make([]schedule.Lesson, 0, len(dtos))
	for _, dto := range dtos {
		lesson := dto.ToDomain()
		if err := lesson.Validate(); err != nil {
			return nil, fmt.Errorf("schedule by date %s: %w", date, err)
		}
		lessons = append(lessons, lesson)
	}

	return lessons, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a single HTTP request against the portal.
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.config.Origin != "" {
		req.Header.Set("Origin", c.config.Origin)
		req.Header.Set("Referer", c.config.Referer)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	if c.config.Debug {
		c.logger.Debug("mystat api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrForbidden, truncate(string(respBody), 200))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// truncate bounds response bodies quoted in errors.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
