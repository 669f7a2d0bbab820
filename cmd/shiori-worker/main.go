package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"shiori/internal/amqp"
	"shiori/internal/cli"
	"shiori/internal/log"
	"shiori/internal/sheets"
	gsheet "shiori/internal/sheets/google"
	"shiori/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(nil)
	logger := cli.SetupLogger(cfg, log.ComponentWorker, os.Stdout)
	logger.Info("Starting shiori-worker")

	if !cfg.SnapshotsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger.Logger)
	defer stop()

	// Google Sheets mirroring is optional
	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger.For(log.ComponentSheets))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	mirror, err := worker.NewMirrorWorker(cfg.MirrorDir, exporter, logger.For(log.ComponentWorker))
	if err != nil {
		logger.Error("Failed to initialize mirror worker", log.FieldError, err, "dir", cfg.MirrorDir)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.For(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeSnapshots(gctx, mirror.HandleSnapshot)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldVersion, mirror.LastVersion())
}
