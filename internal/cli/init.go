// Package cli holds the startup steps shared by cmd/splitbill and
// cmd/splitbill-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splitbill/internal/config"
	"splitbill/internal/log"
)

// LoadConfig reads .env when present, then the environment.
func LoadConfig() *config.Config {
	config.LoadEnvFile()
	return config.Load()
}

// SetupLogger builds the logger described by cfg and makes it the slog
// default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(cfg.LoggerConfig(component))
	log.SetDefault(logger)
	return logger
}

// ExitOnError logs err and exits the process when err is not nil.
func ExitOnError(logger *log.Logger, msg string, err error, args ...any) {
	if err == nil {
		return
	}
	logger.Error(msg, append(args, log.FieldError, err)...)
	os.Exit(1)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout, and the
// returned channel closes once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
