// Command polyportfolio serves Polymarket wallet analytics over HTTP, or
// computes a single report and exits. It loads configuration, applies
// command-line overrides, validates, wires dependencies and runs the
// configured mode until it finishes or a signal arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/polyportfolio/internal/app"
	"github.com/alanyoungcy/polyportfolio/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "run mode: serve or report (overrides config)")
	wallet := flag.String("wallet", "", "wallet address for report mode")
	report := flag.String("report", "", "report kind: pnl, total-pnl, unrealized, exposure, value")
	granularity := flag.String("granularity", "", "pnl bucket width: daily or monthly")
	output := flag.String("output", "", "report output file (default stdout)")
	flag.Parse()

	// Logs go to stderr so report mode can write JSON to stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	setIfNotEmpty(&cfg.Mode, *mode)
	setIfNotEmpty(&cfg.Report.Wallet, *wallet)
	setIfNotEmpty(&cfg.Report.Kind, *report)
	setIfNotEmpty(&cfg.Report.Granularity, *granularity)
	setIfNotEmpty(&cfg.Report.Output, *output)

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redacted := config.RedactedConfig(cfg)
	logger.Debug("configuration loaded", slog.Any("config", redacted))
	logger.Info("polyportfolio starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = application.Run(ctx)
	stop()
	application.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger.Info("polyportfolio stopped")
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
