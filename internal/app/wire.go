package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	s3blob "github.com/alanyoungcy/polyportfolio/internal/blob/s3"
	"github.com/alanyoungcy/polyportfolio/internal/analytics"
	"github.com/alanyoungcy/polyportfolio/internal/cache/redis"
	"github.com/alanyoungcy/polyportfolio/internal/config"
	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/labelstore"
	"github.com/alanyoungcy/polyportfolio/internal/metrics"
	"github.com/alanyoungcy/polyportfolio/internal/platform/polymarket"
	"github.com/alanyoungcy/polyportfolio/internal/server/middleware"
	"github.com/alanyoungcy/polyportfolio/internal/store/postgres"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Data  *polymarket.DataClient
	Gamma *polymarket.GammaClient

	Engine *analytics.Engine

	// Labels persists the sector label cache; nil keeps it in memory only.
	Labels domain.LabelStore
	// RateLimiter guards the HTTP API. Only set in serve mode.
	RateLimiter domain.RateLimiter

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// Wire constructs all concrete dependency implementations from cfg and
// returns them together with a cleanup function that releases them in
// reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}
	serve := strings.EqualFold(cfg.Mode, "serve")

	// --- Metrics (exposed only by the HTTP server) ---
	if serve {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = metrics.New(reg)
		deps.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// --- Venue clients share one request budget ---
	var limiter *rate.Limiter
	if cfg.Venue.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Venue.RequestsPerSecond), max(1, cfg.Venue.Burst))
	}
	opts := []polymarket.Option{
		polymarket.WithLimiter(limiter),
		polymarket.WithMetrics(deps.Metrics),
	}
	if cfg.Venue.Timeout.Duration > 0 {
		opts = append(opts, polymarket.WithTimeout(cfg.Venue.Timeout.Duration))
	}
	deps.Data = polymarket.NewDataClient(cfg.Venue.DataHost, opts...)
	deps.Gamma = polymarket.NewGammaClient(cfg.Venue.GammaHost, opts...)

	// --- Redis (label store and/or shared rate limiter) ---
	backend := strings.ToLower(cfg.LabelStore.Backend)
	redisLimiter := serve && strings.EqualFold(cfg.Server.RateLimitBackend, "redis")
	var redisClient *redis.Client
	if backend == "redis" || redisLimiter {
		c, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = c.Close() })
		redisClient = c
	}

	// --- Label store ---
	switch backend {
	case "file":
		deps.Labels = labelstore.NewFileStore(cfg.LabelStore.Path)
	case "redis":
		deps.Labels = redis.NewLabelStore(redisClient)
	case "s3":
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		if err := s3Client.Health(ctx); err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Labels = s3blob.NewLabelStore(s3blob.NewReader(s3Client), s3blob.NewWriter(s3Client), cfg.LabelStore.S3Key)
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Labels = postgres.NewLabelStore(pgClient.Pool())
	case "memory":
	default:
		return fail(fmt.Errorf("wire: unknown label store backend %q", cfg.LabelStore.Backend))
	}
	logger.Info("wire: label store selected", slog.String("backend", backend))

	// --- API rate limiter ---
	if serve {
		if redisLimiter {
			deps.RateLimiter = redis.NewRateLimiter(redisClient)
		} else {
			deps.RateLimiter = middleware.NewLocalLimiter()
		}
	}

	deps.Engine = analytics.NewEngine(deps.Data, deps.Gamma, deps.Labels, analytics.EngineConfig{
		PageSize:           cfg.Analytics.PageSize,
		ClosedPageSize:     cfg.Analytics.ClosedPageSize,
		MaxPages:           cfg.Analytics.MaxPages,
		ContractMultiplier: cfg.Analytics.ContractMultiplier,
		TagLookupTimeout:   cfg.Analytics.TagLookupTimeout.Duration,
		LookupConcurrency:  cfg.Analytics.LookupConcurrency,
	}, deps.Metrics, nil, logger)

	return deps, cleanup, nil
}
