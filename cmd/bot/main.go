package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"blakkisvuohi/internal/api"
	"blakkisvuohi/internal/bot"
	"blakkisvuohi/internal/commands"
	"blakkisvuohi/internal/config"
	"blakkisvuohi/internal/database"
	"blakkisvuohi/internal/events"
	"blakkisvuohi/internal/flows"
	"blakkisvuohi/internal/logging"
	"blakkisvuohi/internal/metrics"
	"blakkisvuohi/internal/repository"
	"blakkisvuohi/internal/security"
	"blakkisvuohi/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	cipher, err := security.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	eventBus := events.NewEventBus()
	m.Observe(eventBus)

	userService := service.NewUserService(db, cipher, eventBus, cfg.Bot.EBACWindowHours, logging.Component(logger, "users"))

	if cfg.Monitoring.PrometheusEnabled {
		httpServer := api.NewHTTPServer(api.Options{Port: cfg.Monitoring.PrometheusPort}, db, promRegistry, m, logging.Component(logger, "http"))
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Backup.Enabled && cfg.Database.Driver == database.DriverSQLite {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
		if err := backupService.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start backups")
		} else {
			defer func() { _ = backupService.Stop() }()
		}
	}

	return startBot(ctx, cfg, stateService, userService, m, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logging.Component(baseLogger, "bot-main"), closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	source := cfg.Database.Path
	if cfg.Database.Driver == database.DriverPostgres {
		source = cfg.Database.DSN
	}

	db, err := database.NewDB(cfg.Database.Driver, source, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
		return nil, err
	}
	return db, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	ttl := time.Duration(cfg.Redis.StateTTL) * time.Second
	fallbackRepo := repository.NewMemoryStateRepository()

	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, keeping flow state in memory")
		return nil, service.NewStateService(fallbackRepo, logger)
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if errPing := repository.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logging.Component(logger, "state"))
	return redisClient, service.NewStateService(stateRepo, logger)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	userService *service.UserService,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) error {
	loc, err := time.LoadLocation(cfg.Bot.Timezone)
	if err != nil {
		return fmt.Errorf("bot.timezone: %w", err)
	}

	botAPI, err := bot.Connect(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create BotAPI")
		return err
	}

	tgService := service.NewTelegramService(botAPI, cfg.Telegram.SendRPS, cfg.Telegram.SendBurst, m, logging.Component(logger, "telegram"))

	registry := commands.NewRegistry(userService, stateService, tgService, m, logging.Component(logger, "commands"))
	flows.Register(registry, userService, flows.Options{
		RecentDrinks: cfg.Bot.RecentDrinks,
		Location:     loc,
	}, logger)

	telegramBot := bot.NewBot(tgService, registry, stateService, userService, tgService, bot.Limits{
		RateLimitMessages: cfg.Bot.RateLimitMessages,
		RateLimitWindow:   time.Duration(cfg.Bot.RateLimitWindow) * time.Second,
	}, m, logger)

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Msg("Bot started")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
