package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go-guildevents/internal/actions"
	"go-guildevents/internal/bot"
	"go-guildevents/internal/cache"
	"go-guildevents/internal/config"
	"go-guildevents/internal/database"
	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/logging"
	"go-guildevents/internal/metrics"
	"go-guildevents/internal/notifier"
	"go-guildevents/internal/permissions"
	"go-guildevents/internal/watchdog"

	goredis "github.com/redis/go-redis/v9"
)

type Bootstrap struct {
	Config      *config.Config
	Components  *Components
	initialized bool
	cancel      context.CancelFunc
}

type Components struct {
	// Entity cache and its outputs
	Store    *cache.Store
	Redis    *goredis.Client
	Mirror   *cache.RedisMirror
	Database *database.Database
	Notifier *notifier.Notifier

	// REST side
	Dispatcher  *dispatcher.Dispatcher
	Permissions *permissions.StateSnapshot
	Facade      *actions.Facade

	// Gateway side
	Session  *bot.Session
	Handlers *bot.Handlers

	// Monitoring and observability
	Metrics  *metrics.Registry
	Exporter *metrics.Exporter
	Watchdog *watchdog.Watchdog
}

func New() *Bootstrap {
	return &Bootstrap{
		initialized: false,
	}
}

func (b *Bootstrap) Initialize(configPath string) error {
	b.Config = config.LoadOrDefault(configPath)

	if err := b.initializeLogging(); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	if b.Config.Bot.Token == "" {
		return fmt.Errorf("no bot token: set bot.token or DISCORD_TOKEN")
	}

	if err := b.wireComponents(); err != nil {
		return fmt.Errorf("component wiring failed: %w", err)
	}

	b.initialized = true
	logging.Info("Bootstrap complete")
	return nil
}

func (b *Bootstrap) initializeLogging() error {
	path := b.Config.Logging.Path
	if path != "" {
		if err := ensureLogsDirectory(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	return logging.InitGlobalLogger(logging.ParseLevel(b.Config.Logging.Level), path)
}

func ensureLogsDirectory(dir string) error {
	// Create logs directory if it doesn't exist
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return err
}

func (b *Bootstrap) wireComponents() error {
	return Wire(b)
}

func (b *Bootstrap) Start() error {
	if !b.initialized {
		return fmt.Errorf("bootstrap not initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	return StartAll(ctx, b.Config, b.Components)
}

func (b *Bootstrap) Shutdown() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.Components == nil {
		return nil
	}
	return Shutdown(b.Components)
}
