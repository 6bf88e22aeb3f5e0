// Package cli provides the process bootstrap shared by cmd/cashflow and
// cmd/cashflow-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cashflow/internal/backend"
	"cashflow/internal/config"
	applog "cashflow/internal/log"
	"cashflow/internal/report"
	"cashflow/internal/services"
)

// Runtime is everything a command needs once the process is bootstrapped.
type Runtime struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Service *services.TransactionService
	Engine  *report.Engine
}

// Close releases the backend.
func (rt *Runtime) Close() error {
	if rt.Backend == nil || rt.Backend.Cleanup == nil {
		return nil
	}
	return rt.Backend.Cleanup()
}

// Options tune Bootstrap.
type Options struct {
	// Debug forces the debug log level.
	Debug bool
	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// SetupLogger builds the process logger from a LOG_LEVEL value and makes it
// the slog default.
func SetupLogger(level string, opts Options) (*applog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		lvl = slog.LevelDebug
	}
	logger := applog.New(applog.Config{Level: lvl, Component: applog.ComponentApp, Output: opts.LogOutput})
	applog.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Bootstrap loads env and config, sets up logging and opens the backend.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogger(cfg.LogLevel, opts)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var publisher services.EventPublisher
	if res.AMQP != nil {
		publisher = res.AMQP
	}

	targets, err := report.ParseTargets(cfg.BudgetTargets)
	if err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("BUDGET_TARGETS: %w", err)
	}
	if cfg.BudgetTargets != "" {
		logger.WithComponent(applog.ComponentReport).Info("Using custom budget targets", "targets", len(targets))
	}

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Service: services.NewTransactionService(res.Repository, nil, publisher),
		Engine:  report.NewEngine(res.Repository).WithTargets(targets),
	}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
