package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-guildevents/internal/bootstrap"
	"go-guildevents/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	fmt.Println("Starting guild scheduled event service")

	b := bootstrap.New()
	if err := b.Initialize(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		logging.Critical("Start failed: %v", err)
		bootstrap.EmergencyShutdown(b.Components)
		logging.Close()
		os.Exit(1)
	}

	logging.Info("Discord bot connected and commands registered")

	waitForShutdown()

	if err := b.Shutdown(); err != nil {
		logging.Error("Shutdown error: %v", err)
	}

	logging.Info("Shutdown complete")
	logging.Close()
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
