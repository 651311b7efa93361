// Package cli holds the finka commands and the start-up wiring they share.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/b1411/finka/internal/config"
	"github.com/b1411/finka/internal/log"
)

// SetupLogger builds the process logger at the given level and makes it
// the slog default. Commands log to stderr so their output stays parseable.
func SetupLogger(level string, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env files, reads the environment, applies
// override (command-line flags) and validates the result.
func LoadAndValidateConfig(envFiles []string, override func(*config.Config)) (*config.Config, error) {
	config.LoadDotEnv(envFiles...)
	cfg := config.Load()
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop func releases the signal handler.
func ShutdownContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// requireScopeFlags reports missing --org or --period before anything is
// built.
func requireScopeFlags(org, period string) error {
	if org == "" || period == "" {
		return fmt.Errorf("both --org and --period are required")
	}
	return nil
}
