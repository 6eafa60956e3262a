package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go-guildevents/internal/actions"
	"go-guildevents/internal/bot"
	"go-guildevents/internal/cache"
	"go-guildevents/internal/commands"
	"go-guildevents/internal/config"
	"go-guildevents/internal/database"
	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/logging"
	"go-guildevents/internal/metrics"
	"go-guildevents/internal/notifier"
	"go-guildevents/internal/permissions"
	"go-guildevents/internal/watchdog"
)

const (
	watchdogInterval    = 5 * time.Second
	dispatcherThreshold = 30 * time.Second
	gatewayThreshold    = 90 * time.Second // two missed ~41s heartbeat acks
)

func Wire(b *Bootstrap) error {
	logging.Info("Wiring components...")
	cfg := b.Config

	if err := database.Initialize(cfg.Database.Path); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if !database.IsConnected() {
		return fmt.Errorf("database connection not available")
	}
	db := database.GetDB()
	logging.Info("Database connection verified (%s)", cfg.Database.Path)

	metrics.InitGlobalRegistry()
	metricsRegistry := metrics.GetRegistry()

	store := cache.NewStore()

	c := &Components{
		Store:    store,
		Database: db,
		Metrics:  metricsRegistry,
	}

	if cfg.Cache.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		cancel()
		if err != nil {
			// the mirror is optional; run without it
			logging.Warn("Redis mirror disabled: %v", err)
		} else {
			c.Redis = rdb
			c.Mirror = cache.NewRedisMirror(rdb, cfg.Cache.SnapshotTTL())
			logging.Info("Redis mirror enabled")
		}
	}

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		return err
	}
	c.Session = bot.GetSession()

	c.Dispatcher = dispatcher.NewDispatcher(dispatcherOptions(cfg, metricsRegistry))
	c.Permissions = permissions.NewStateSnapshot(c.Session.GetDiscord().State, "")
	c.Facade = actions.NewFacade(c.Dispatcher, c.Permissions)

	c.Notifier = notifier.New(c.Session.GetDiscord(), notifier.DatabaseChannels{DB: db})

	var mirror bot.Mirror
	if c.Mirror != nil {
		mirror = c.Mirror
	}
	recorder := bot.NewRecorder(db, mirror, c.Notifier)
	c.Handlers = bot.NewHandlers(store, recorder, metricsRegistry).
		WithLister(c.Facade).
		WithArchive(db)

	if cfg.Metrics.Enabled {
		c.Exporter = metrics.NewExporter(cfg.Metrics.Addr, metricsRegistry)
	}

	c.Watchdog = watchdog.NewWatchdog(watchdogInterval, metricsRegistry)
	c.Watchdog.RegisterProbe("gateway", gatewayThreshold, c.Session.LastHeartbeatAck)
	c.Watchdog.RegisterProbe("dispatcher", dispatcherThreshold, queueProbe(c.Dispatcher, cfg.Network.QueueSize))

	b.Components = c
	logging.Info("Component wiring complete")
	return nil
}

func dispatcherOptions(cfg *config.Config, m *metrics.Registry) dispatcher.Options {
	return dispatcher.Options{
		BaseURL:   cfg.Network.APIBaseURL,
		Token:     cfg.Bot.Token,
		PoolSize:  cfg.Network.HTTPPoolSize,
		Workers:   cfg.Network.WorkerCount,
		QueueSize: cfg.Network.QueueSize,
		Timeout:   cfg.Network.RequestTimeout(),
		Metrics:   m,
	}
}

// queueProbe reports the dispatcher alive while its queue has headroom. A
// queue pinned at capacity stops refreshing the probe.
func queueProbe(d *dispatcher.Dispatcher, capacity int) watchdog.Probe {
	return func() time.Time {
		if d.QueueSize() >= capacity {
			return time.Time{}
		}
		return time.Now()
	}
}

func StartAll(ctx context.Context, cfg *config.Config, c *Components) error {
	logging.Info("Starting components...")

	if c.Exporter != nil {
		go func() {
			if err := c.Exporter.Run(ctx); err != nil {
				logging.Error("Metrics exporter stopped: %v", err)
			}
		}()
		go c.Metrics.RunHostSampler(ctx, cfg.Metrics.HostSampleInterval())
	}

	// Start watchdog first to monitor other components
	c.Watchdog.Start(ctx)
	logging.Info("Watchdog started")

	c.Dispatcher.Start()
	if cfg.Network.Warmup && !c.Dispatcher.Warmup() {
		logging.Warn("HTTP pool warmup failed")
	}
	logging.Info("REST dispatcher started with %d workers", cfg.Network.WorkerCount)

	c.Session.SetupEventHandlers(c.Handlers)
	if err := c.Session.Connect(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	c.Permissions.SetSelf(c.Session.BotID)

	if err := commands.Initialize(c.Session, c.Store, c.Facade, c.Database); err != nil {
		return fmt.Errorf("command registration failed: %w", err)
	}

	logging.Info("All components started")
	return nil
}
