// Package cli provides common CLI initialization utilities and the shiori
// command tree. The helpers are shared by cmd/shiori, cmd/shiori-worker and
// cmd/shiori-cli.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shiori/internal/adapters"
	"shiori/internal/amqp"
	"shiori/internal/backend"
	"shiori/internal/config"
	"shiori/internal/log"
	"shiori/internal/services"
	"shiori/internal/transfer"
)

// SetupLogger initializes structured logging from the configuration and
// installs it as the default logger.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	lc.Output = out
	if cfg != nil {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.OrDefault(logger).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Session is an itinerary service wired to its configured collaborators.
type Session struct {
	Itinerary *services.Itinerary
	Backend   *backend.BackendResult
	Seed      services.SeedResult
	BaseURL   string
	QRSize    int

	publisher io.Closer
}

// Close releases the publisher and the slot store. Both are closed even when
// the first fails.
func (s *Session) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp client: %w", err))
		}
	}
	if err := s.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}

// OpenSession creates the slot store, the optional snapshot publisher and
// the itinerary service, then seeds the service. inbound may be nil.
func OpenSession(ctx context.Context, cfg *config.Config, logger *log.Logger, inbound transfer.Inbound) (*Session, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.For(log.ComponentStorage)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	s := &Session{Backend: result, BaseURL: cfg.PublicBaseURL, QRSize: cfg.QRSize}
	if s.BaseURL == "" {
		s.BaseURL = fmt.Sprintf("http://localhost:%s/", cfg.Port)
	}
	opts := []services.Option{services.WithLogger(logger.For(log.ComponentItinerary))}

	if cfg.SnapshotsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.For(log.ComponentAMQP))
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without snapshots", log.FieldError, err)
		} else {
			s.publisher = client
			opts = append(opts, services.WithPublisher(client))
			logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	persistence := adapters.NewPersistence(result.Slots, cfg.StorageKey, logger.For(log.ComponentPersistence))
	s.Itinerary = services.NewItinerary(persistence, opts...)
	s.Seed = s.Itinerary.Seed(ctx, inbound)
	return s, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// The returned stop function releases the signal handler.
func GracefulShutdown(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.OrDefault(logger).Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
