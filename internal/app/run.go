package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/config"
)

const shutdownTimeout = 15 * time.Second

// Run is the main entry point for the application
func Run() error {
	// .env.local overrides .env; neither overrides the real environment
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	logCloser, err := logging.InitGlobalLogger()
	if err != nil {
		return err
	}
	defer logCloser.Close()
	defer logging.MustSync()

	logging.Info("Starting task dashboard")

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	srv := app.RunServer()
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		return err
	}

	// Wait for interrupt signal or a serve failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		logging.Info("Shutting down server...", logging.String("signal", sig.String()))
	case serveErr = <-srv.Errors():
		if serveErr != nil {
			logging.Error("Server stopped unexpectedly", serveErr)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}
	if err := app.Shutdown(ctx); err != nil {
		logging.Warn("Error during app shutdown", logging.Err(err))
	}

	logging.Info("Server exited")
	return serveErr
}
