// Package main - точка входа для Telegram бота напоминаний MyStat.
//
// Бот авторизует студента в журнале top-academy, получает расписание на
// день и присылает напоминание за 5 минут до начала каждой пары.
//
// Архитектура следует принципам Clean Architecture:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (token manager, schedule query)
// - Infrastructure: репозитории, внешние API, таймеры напоминаний
// - Interface: Telegram bot handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mystat-hub/mystat-reminder-bot/config"
	"github.com/mystat-hub/mystat-reminder-bot/internal/application/query"
	"github.com/mystat-hub/mystat-reminder-bot/internal/application/token"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/external/mystat"
	tgclient "github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/external/telegram"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/persistence/postgres"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/persistence/redis"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/reminder"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/scheduler"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/scheduler/jobs"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/service"
	"github.com/mystat-hub/mystat-reminder-bot/internal/interface/telegram"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/cryptoutil"
	"github.com/mystat-hub/mystat-reminder-bot/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting MyStat reminder bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	if err := postgres.RunMigrations(ctx, dbConn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var scheduleCache query.ScheduleCache
	if !cfg.Redis.Disabled && cfg.Redis.URL != "" {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.TTL = cfg.Redis.CacheTTL
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err := redis.NewScheduleCache(ctx, redisCfg, log)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer cache.Close()
			scheduleCache = cache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ ШИФРОВАНИЯ И РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	cipher, err := cryptoutil.NewCipher(cfg.Crypto.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to init cipher: %w", err)
	}

	sessionRepo := postgres.NewSessionRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	mystatConfig := mystat.DefaultClientConfig(cfg.MyStat.ApplicationKey)
	mystatConfig.BaseURL = cfg.MyStat.BaseURL
	mystatConfig.Origin = cfg.MyStat.Origin
	mystatConfig.Referer = cfg.MyStat.Referer
	mystatConfig.Timeout = cfg.MyStat.RequestTimeout
	mystatConfig.Logger = log
	mystatConfig.Debug = cfg.App.Debug
	mystatClient := mystat.NewClient(mystatConfig)

	portalAuth := service.NewPortalAuthAdapter(mystatClient)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	tokenManager := token.NewManager(portalAuth, sessionRepo, cipher,
		token.WithLogger(log),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. СОЗДАНИЕ TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.PollingTimeout = cfg.Telegram.PollingTimeout
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log

	// Реестр напоминаний шлет сообщения тем же клиентом, что и бот,
	// поэтому сначала создаем бота с временной заглушкой запроса.
	reminderConfig := reminder.DefaultConfig()
	reminderConfig.Logger = log

	var registry *reminder.Registry
	var scheduleQuery *query.GetScheduleHandler

	bot, err := telegram.NewBot(botConfig, telegram.BotDependencies{
		TokenManager: tokenManager,
		ScheduleQuery: scheduleQueryFunc(func(ctx context.Context, q query.GetScheduleQuery) (*query.ScheduleDTO, error) {
			return scheduleQuery.Handle(ctx, q)
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	notifier := tgclient.NewNotifier(bot.Client())
	registry = reminder.NewRegistry(notifier, reminderConfig)
	defer registry.Shutdown()

	scheduleQuery = query.NewGetScheduleHandler(
		sessionRepo,
		tokenManager,
		mystatClient,
		registry,
		scheduleCache,
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	var jobScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		jobScheduler = scheduler.New(scheduler.Config{
			Logger:   log,
			Timezone: timeutil.MoscowTZ,
		})

		cleanupJob := jobs.NewCleanupRemindersJob(registry, log)
		cleanupSchedule := scheduler.DailyAtSchedule{
			Hour:     cfg.Scheduler.CleanupHour,
			Minute:   cfg.Scheduler.CleanupMinute,
			Location: timeutil.MoscowTZ,
		}
		if err := jobScheduler.Register(cleanupJob, cleanupSchedule); err != nil {
			return fmt.Errorf("failed to register cleanup job: %w", err)
		}

		statsJob := jobs.NewRegistryStatsJob(registry, log)
		statsSchedule := scheduler.IntervalSchedule{Interval: cfg.Scheduler.StatsInterval}
		if err := jobScheduler.Register(statsJob, statsSchedule); err != nil {
			return fmt.Errorf("failed to register stats job: %w", err)
		}

		if err := jobScheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := bot.Start(ctx); err != nil {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	log.Info("MyStat reminder bot is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	// 1. Останавливаем бота (перестаем принимать новые команды)
	bot.Stop()

	// 2. Останавливаем фоновые задачи
	if jobScheduler != nil {
		if err := jobScheduler.Stop(); err != nil {
			log.Warn("failed to stop scheduler", "error", err)
		}
	}

	// 3. Реестр напоминаний и база данных закроются через defer

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// scheduleQueryFunc позволяет отложить привязку обработчика расписания,
// разрывая цикл bot -> notifier -> registry -> query -> bot.
type scheduleQueryFunc func(ctx context.Context, q query.GetScheduleQuery) (*query.ScheduleDTO, error)

func (f scheduleQueryFunc) Handle(ctx context.Context, q query.GetScheduleQuery) (*query.ScheduleDTO, error) {
	return f(ctx, q)
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// parseLogLevel converts the configured level string to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
