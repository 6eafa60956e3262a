package bootstrap

import (
	"go-guildevents/internal/logging"
)

func Shutdown(c *Components) error {
	logging.Info("Starting graceful shutdown...")

	// Stop watchdog
	if c.Watchdog != nil {
		logging.Info("Stopping watchdog...")
		c.Watchdog.Stop()
	}

	// Gateway first so no new changes arrive while outputs close
	if c.Session != nil {
		logging.Info("Closing gateway session...")
		if err := c.Session.Close(); err != nil {
			logging.Warn("Gateway close failed: %v", err)
		}
	}

	if c.Dispatcher != nil {
		logging.Info("Stopping REST dispatcher...")
		c.Dispatcher.Stop()
	}

	if c.Mirror != nil {
		logging.Info("Closing redis mirror...")
		if err := c.Mirror.Close(); err != nil {
			logging.Warn("Redis close failed: %v", err)
		}
	}

	var err error
	if c.Database != nil {
		logging.Info("Closing database...")
		err = c.Database.Close()
	}

	logging.Info("Graceful shutdown complete")
	return err
}

func EmergencyShutdown(c *Components) {
	logging.Critical("Emergency shutdown initiated")

	if c.Watchdog != nil {
		c.Watchdog.Stop()
	}
	if c.Session != nil {
		c.Session.Close()
	}
	if c.Database != nil {
		c.Database.Close()
	}

	logging.Critical("Emergency shutdown complete")
}
