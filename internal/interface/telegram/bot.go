package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mystat-hub/mystat-reminder-bot/internal/application/token"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/external/telegram"
	"github.com/mystat-hub/mystat-reminder-bot/internal/interface/telegram/handler"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// PollingTimeout is the timeout for long polling (in seconds).
	PollingTimeout int

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout is the timeout for graceful shutdown.
	GracefulShutdownTimeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		PollingTimeout:          30,
		MaxConcurrentUpdates:    100,
		GracefulShutdownTimeout: 30 * time.Second,
		Logger:                  slog.Default(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	// TokenManager performs portal login and keeps tokens fresh.
	TokenManager *token.Manager

	// ScheduleQuery fetches and renders day schedules.
	ScheduleQuery handler.ScheduleQueries
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// Main bot structure that orchestrates Telegram interactions.
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *slog.Logger

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	cancel    context.CancelFunc
	updateSem chan struct{} // Semaphore for concurrent update limiting
	wg        sync.WaitGroup
}

// NewBot creates a new Telegram bot with all dependencies.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = 100
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger
	clientConfig.Debug = config.Debug
	if config.PollingTimeout > 0 {
		clientConfig.PollTimeout = config.PollingTimeout
	}
	client := telegram.NewClient(clientConfig)

	router := NewRouter(RouterConfig{
		Logger: config.Logger,
		Debug:  config.Debug,
	})

	bot := &Bot{
		config:    config,
		client:    client,
		router:    router,
		logger:    config.Logger,
		updateSem: make(chan struct{}, config.MaxConcurrentUpdates),
	}

	bot.registerHandlers(deps)

	return bot, nil
}

// Client returns the underlying Telegram client.
// Reminder delivery reuses the same client as command responses.
func (b *Bot) Client() *telegram.Client {
	return b.client
}

// registerHandlers wires the command handlers into the router.
func (b *Bot) registerHandlers(deps BotDependencies) {
	startHandler := handler.NewStartHandler()
	loginHandler := handler.NewLoginHandler(deps.TokenManager, b.logger)
	scheduleHandler := handler.NewScheduleHandler(deps.ScheduleQuery, b.logger)

	b.router.RegisterCommand("start", func(ctx context.Context, cmdCtx CommandContext) error {
		firstName := ""
		if cmdCtx.Message != nil && cmdCtx.Message.From != nil {
			firstName = cmdCtx.Message.From.FirstName
		}

		resp, err := startHandler.Handle(ctx, handler.StartRequest{
			ChatID:    cmdCtx.ChatID,
			FirstName: firstName,
		})
		if err != nil {
			return err
		}
		_, err = cmdCtx.Client.SendText(ctx, cmdCtx.ChatID, resp.Text)
		return err
	})

	b.router.RegisterCommand("login", func(ctx context.Context, cmdCtx CommandContext) error {
		// Портал отвечает не мгновенно, поэтому сразу подтверждаем прием
		if _, err := cmdCtx.Client.SendText(ctx, cmdCtx.ChatID, "Авторизация..."); err != nil {
			return err
		}

		resp, err := loginHandler.Handle(ctx, handler.LoginRequest{
			ChatID: cmdCtx.ChatID,
			Args:   cmdCtx.Args,
		})
		if err != nil {
			return err
		}
		_, err = cmdCtx.Client.SendText(ctx, cmdCtx.ChatID, resp.Text)
		return err
	})

	b.router.RegisterCommand("today", b.scheduleCommand(scheduleHandler, 0))
	b.router.RegisterCommand("tomorrow", b.scheduleCommand(scheduleHandler, 1))
}

// scheduleCommand builds a command handler for a fixed day offset.
func (b *Bot) scheduleCommand(h *handler.ScheduleHandler, offsetDays int) CommandFunc {
	return func(ctx context.Context, cmdCtx CommandContext) error {
		resp, err := h.Handle(ctx, handler.ScheduleRequest{
			ChatID:     cmdCtx.ChatID,
			OffsetDays: offsetDays,
		})
		if err != nil {
			return err
		}
		_, err = cmdCtx.Client.SendText(ctx, cmdCtx.ChatID, resp.Text)
		return err
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins receiving updates via long polling.
// It blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	ctx, b.cancel = context.WithCancel(ctx)
	b.runningMu.Unlock()

	// Long polling and webhook are mutually exclusive
	if err := b.client.DeleteWebhook(ctx, false); err != nil {
		b.logger.Warn("failed to delete webhook", "error", err)
	}

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("bot started", "username", me.Username)

	err = b.client.StartPolling(ctx, b.handleUpdate)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop gracefully stops the bot, waiting for in-flight updates.
func (b *Bot) Stop() {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return
	}
	b.running = false
	b.cancel()
	b.runningMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("bot stopped")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("bot shutdown timed out")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate dispatches a single update to the router.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	command := telegram.ExtractCommand(update.Message)
	if command == "" {
		return nil
	}

	select {
	case b.updateSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.updateSem }()

		cmdCtx := CommandContext{
			ChatID:  update.Message.Chat.ID,
			Args:    telegram.ExtractCommandArgs(update.Message),
			Message: update.Message,
			Client:  b.client,
		}
		if update.Message.From != nil {
			cmdCtx.TelegramID = update.Message.From.ID
		}

		if err := b.router.HandleCommand(ctx, command, cmdCtx); err != nil {
			b.logger.Error("command handler failed",
				"command", command,
				"chat_id", cmdCtx.ChatID,
				"error", err,
			)
		}
	}()

	return nil
}
