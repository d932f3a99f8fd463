package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craftbridge/internal/api"
	"craftbridge/internal/app"
	"craftbridge/internal/config"
	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "craftbridge",
	})

	configDir, err := config.DefaultConfigDir()
	if err != nil {
		logger.Fatal("could not resolve config directory", "err", err)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		logger.Fatal("error loading configuration", "err", err)
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}

	logger.Info("starting daemon", "config", configDir, "server_dir", cfg.ServerDir, "rcon", cfg.RCONAddr())

	container, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("could not initialize", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewAPIServer(container)
	listenAddr := fmt.Sprintf(":%d", cfg.APIPort)
	serveErr := apiServer.Start(ctx, listenAddr)

	shutdownServer(container, logger)
	if err := container.Close(); err != nil {
		logger.Warn("error during cleanup", "err", err)
	}
	if serveErr != nil {
		logger.Fatal("API error", "err", serveErr)
	}
}

// shutdownServer stops a running server so the daemon never leaves an
// orphaned java process behind.
func shutdownServer(c *app.Container, logger *log.Logger) {
	switch c.Coordinator.State() {
	case domain.Running:
		logger.Info("stopping server before exit")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := c.Coordinator.Stop(ctx); err == nil {
			return
		}
		fallthrough
	case domain.Starting, domain.Stopping:
		if c.Supervisor.PID() != 0 {
			logger.Warn("killing server before exit")
			_ = c.Coordinator.Kill()
			waitForExit(c, 10*time.Second)
		}
	}
}

func waitForExit(c *app.Container, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for c.Supervisor.PID() != 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
}
