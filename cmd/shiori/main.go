package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"shiori/internal/cli"
	apphttp "shiori/internal/http"
	"shiori/internal/log"
	"shiori/internal/qr"
	"shiori/internal/transfer"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(nil)
	logger := cli.SetupLogger(cfg, log.ComponentApp, os.Stdout)

	ctx, stop := cli.GracefulShutdown(context.Background(), logger.Logger)
	defer stop()

	// A share link handed over in the environment wins over the saved copy.
	session, err := cli.OpenSession(ctx, cfg, logger, transfer.EnvInbound{Name: cfg.ImportEnv})
	if err != nil {
		logger.Error("Failed to open itinerary", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close itinerary backend", log.FieldError, err)
		}
	}()
	if session.Seed.ImportErr != nil {
		logger.Warn("Ignored inbound share link", log.FieldError, session.Seed.ImportErr)
	}

	srv := apphttp.NewServer(":"+cfg.Port, session.Itinerary,
		apphttp.WithLogger(logger.For(log.ComponentHTTP)),
		apphttp.WithBaseURL(cfg.PublicBaseURL),
		apphttp.WithQRRenderer(qr.NewEncoder(cfg.QRSize)),
		apphttp.WithReadiness(session.Backend.Check),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting shiori server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldCount, session.Seed.Count,
			"seed_source", string(session.Seed.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
