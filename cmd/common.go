package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/northroute/internal/backend"
	"github.com/northroute/internal/config"
	"github.com/northroute/internal/retry"
	"github.com/northroute/internal/store"
)

// setupLogging configures the global zerolog logger for CLI use: console
// output on stderr so command output on stdout stays clean.
func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// loadConfig loads and validates configuration for a command invocation.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogging(cfg.Logging.Level)
	return cfg, nil
}

// openStore constructs the configured storage driver. The returned cleanup
// releases any underlying handle and is safe to defer immediately.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "file":
		return store.NewFileStore(cfg.Storage.Path), func() {}, nil
	case "bolt":
		s, err := store.NewBoltStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// newBackendClient builds the HTTP client for the assistant backend.
func newBackendClient(cfg *config.Config) *backend.Client {
	retryCfg := retry.BackendRetryConfig()
	retryCfg.MaxRetries = cfg.Backend.MaxRetries

	return backend.New(backend.Config{
		BaseURL:          cfg.Backend.BaseURL,
		Timeout:          time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		FallbackLocation: cfg.Router.FallbackLocation,
		Retry:            retryCfg,
	})
}
