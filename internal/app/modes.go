package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyportfolio/internal/config"
	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/server"
	"github.com/alanyoungcy/polyportfolio/internal/server/handler"
)

const shutdownTimeout = 10 * time.Second

// ServeMode runs the HTTP API until ctx is cancelled, then drains in-flight
// requests.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Analytics: handler.NewAnalyticsHandler(deps.Engine, a.logger),
		Venue:     handler.NewVenueHandler(deps.Data, deps.Gamma, a.logger),
		Metrics:   deps.MetricsHandler,
	}, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ReportMode computes one report for the configured wallet and writes it as
// indented JSON to stdout or to the configured output file.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	var w io.Writer = os.Stdout
	if path := a.cfg.Report.Output; path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("report: create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	start := time.Now()
	if err := writeReport(ctx, deps.Engine, a.cfg.Report, w); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "report written",
		slog.String("kind", a.cfg.Report.Kind),
		slog.String("wallet", a.cfg.Report.Wallet),
		slog.String("output", a.cfg.Report.Output),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// writeReport computes the report named by rc.Kind and encodes it to w.
func writeReport(ctx context.Context, svc handler.AnalyticsService, rc config.ReportConfig, w io.Writer) error {
	var (
		out any
		err error
	)
	switch strings.ToLower(rc.Kind) {
	case "pnl":
		var g domain.Granularity
		if g, err = domain.ParseGranularity(strings.ToLower(rc.Granularity)); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		out, err = svc.PnLHistory(ctx, rc.Wallet, g)
	case "total-pnl":
		out, err = svc.TotalPnL(ctx, rc.Wallet)
	case "unrealized":
		out, err = svc.UnrealizedProfit(ctx, rc.Wallet)
	case "exposure":
		out, err = svc.SectorExposure(ctx, rc.Wallet)
	case "value":
		out, err = svc.Value(ctx, rc.Wallet)
	default:
		return fmt.Errorf("report: %w: unknown kind %q", domain.ErrInvalidRequest, rc.Kind)
	}
	if err != nil {
		return fmt.Errorf("report: %s: %w", rc.Kind, err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	return nil
}
