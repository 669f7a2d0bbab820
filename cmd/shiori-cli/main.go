package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"shiori/internal/cli"
	"shiori/internal/log"
	"shiori/internal/transfer"
)

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr and stay quiet unless asked for, stdout is the itinerary.
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "warn")
	}
	cfg := cli.LoadAndValidateConfig(nil)
	logger := cli.SetupLogger(cfg, log.ComponentCLI, os.Stderr)

	opts := &cli.RootOptions{
		Open: func(ctx context.Context) (*cli.Session, error) {
			return cli.OpenSession(ctx, cfg, logger, transfer.EnvInbound{Name: cfg.ImportEnv})
		},
	}

	err := cli.NewRootCommand(opts).ExecuteContext(context.Background())
	if cerr := opts.Close(); cerr != nil {
		logger.Warn("Failed to close itinerary backend", log.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
