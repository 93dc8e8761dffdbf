// Package analytics computes portfolio reports for a Polymarket wallet: a
// bucketed realized/unrealized PnL series, total and unrealized PnL, and a
// sector exposure breakdown backed by a persistent slug-to-sector cache.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/metrics"
)

// DefaultLookupConcurrency bounds parallel sector lookups per request.
const DefaultLookupConcurrency = 4

// VenueClient reads per-wallet data from the venue's data API.
type VenueClient interface {
	Positions(ctx context.Context, user string, limit, offset int) ([]domain.Record, error)
	ClosedPositions(ctx context.Context, user string, limit, offset int) ([]domain.Record, error)
	Value(ctx context.Context, user string) ([]domain.Record, error)
}

// EngineConfig holds the tunables of the analytics engine. Zero values fall
// back to package defaults.
type EngineConfig struct {
	PageSize           int
	ClosedPageSize     int
	MaxPages           int
	ContractMultiplier float64
	TagLookupTimeout   time.Duration
	LookupConcurrency  int
}

// Engine orchestrates the fetch, normalize and aggregate steps of every
// report. It owns the process-wide LabelCache.
type Engine struct {
	venue      VenueClient
	fetcher    *Fetcher
	aggregator *Aggregator
	classifier *Classifier
	labels     domain.LabelStore
	cfg        EngineConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger

	cache *LabelCache
	// labelsMu guards labelsLoaded. Saving is held back until a load has
	// succeeded so a failed read never overwrites the stored document.
	labelsMu     sync.Mutex
	labelsLoaded bool
}

// NewEngine creates an Engine. labels may be nil, in which case the label
// cache lives only in memory. now may be nil.
func NewEngine(
	venue VenueClient,
	tags TagLookup,
	labels domain.LabelStore,
	cfg EngineConfig,
	m *metrics.Metrics,
	now func() time.Time,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = DefaultLookupConcurrency
	}
	return &Engine{
		venue:      venue,
		fetcher:    NewFetcher(venue, cfg.PageSize, cfg.ClosedPageSize, cfg.MaxPages, logger),
		aggregator: NewAggregator(cfg.ContractMultiplier, now),
		classifier: NewClassifier(tags, cfg.TagLookupTimeout, m, logger),
		labels:     labels,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
		cache:      NewLabelCache(),
	}
}

// ValidateWallet returns the trimmed wallet, keeping the caller's casing, or
// domain.ErrInvalidWallet.
func ValidateWallet(wallet string) (string, error) {
	wallet = strings.TrimSpace(wallet)
	if !common.IsHexAddress(wallet) || !strings.HasPrefix(wallet, "0x") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidWallet, wallet)
	}
	return wallet, nil
}

// PnLHistory returns the realized plus unrealized PnL series of wallet at
// granularity g. Any fetch failure fails the whole report.
func (e *Engine) PnLHistory(ctx context.Context, wallet string, g domain.Granularity) (out domain.PnLHistory, err error) {
	defer e.observe("pnl", time.Now(), &err)

	wallet, err = ValidateWallet(wallet)
	if err != nil {
		return domain.PnLHistory{}, err
	}

	closed, err := e.fetcher.FetchAllClosedPositions(ctx, wallet)
	if err != nil {
		return domain.PnLHistory{}, err
	}
	open, err := e.fetcher.FetchAllPositions(ctx, wallet)
	if err != nil {
		return domain.PnLHistory{}, err
	}

	buckets := make(Buckets)
	e.aggregator.AddRealized(buckets, e.aggregator.Realized(closed), g)
	e.aggregator.AddUnrealized(buckets, normalizePositions(open), g)

	series, total := e.aggregator.Series(buckets, g)
	return domain.PnLHistory{User: wallet, Data: series, TotalPnL: total}, nil
}

// TotalPnL returns realized, unrealized and combined PnL for wallet.
func (e *Engine) TotalPnL(ctx context.Context, wallet string) (out domain.TotalPnL, err error) {
	defer e.observe("total-pnl", time.Now(), &err)

	wallet, err = ValidateWallet(wallet)
	if err != nil {
		return domain.TotalPnL{}, err
	}

	closed, err := e.fetcher.FetchAllClosedPositions(ctx, wallet)
	if err != nil {
		return domain.TotalPnL{}, err
	}
	open, err := e.fetcher.FetchAllPositions(ctx, wallet)
	if err != nil {
		return domain.TotalPnL{}, err
	}

	var realized float64
	for _, ev := range e.aggregator.Realized(closed) {
		realized += ev.Realized.Value
	}
	unrealized := e.aggregator.AddUnrealized(make(Buckets), normalizePositions(open), domain.GranularityDaily)

	return domain.TotalPnL{
		User:          wallet,
		RealizedPnL:   Round2(realized),
		UnrealizedPnL: Round2(unrealized),
		TotalPnL:      Round2(realized + unrealized),
	}, nil
}

// UnrealizedProfit returns the mark-to-market PnL of wallet's open
// positions and how many positions contributed to it.
func (e *Engine) UnrealizedProfit(ctx context.Context, wallet string) (out domain.UnrealizedProfit, err error) {
	defer e.observe("unrealized", time.Now(), &err)

	wallet, err = ValidateWallet(wallet)
	if err != nil {
		return domain.UnrealizedProfit{}, err
	}

	open, err := e.fetcher.FetchAllPositions(ctx, wallet)
	if err != nil {
		return domain.UnrealizedProfit{}, err
	}

	positions := normalizePositions(open)
	counted := 0
	for _, p := range positions {
		if p.Resolvable() {
			counted++
		}
	}
	sum := e.aggregator.AddUnrealized(make(Buckets), positions, domain.GranularityDaily)
	return domain.UnrealizedProfit{User: wallet, UnrealizedPnL: Round2(sum), Positions: counted}, nil
}

// Value returns the venue's valuation of wallet, summing the "value" field
// of every row the endpoint returns.
func (e *Engine) Value(ctx context.Context, wallet string) (out domain.PortfolioValue, err error) {
	defer e.observe("value", time.Now(), &err)

	wallet, err = ValidateWallet(wallet)
	if err != nil {
		return domain.PortfolioValue{}, err
	}

	rows, err := e.venue.Value(ctx, wallet)
	if err != nil {
		return domain.PortfolioValue{}, fmt.Errorf("analytics: fetch value: %w", err)
	}
	var total float64
	for _, row := range rows {
		v, _ := FloatField(row, []string{"value"})
		total += v
	}
	return domain.PortfolioValue{User: wallet, Value: Round2(total)}, nil
}

// SectorExposure classifies wallet's open positions by sector and returns the
// ranked breakdown. The label cache is loaded on first use and saved after
// every call once a load has succeeded; storage failures are logged and
// never fail the report.
func (e *Engine) SectorExposure(ctx context.Context, wallet string) (out domain.SectorExposure, err error) {
	defer e.observe("exposure", time.Now(), &err)

	wallet, err = ValidateWallet(wallet)
	if err != nil {
		return domain.SectorExposure{}, err
	}

	open, err := e.fetcher.FetchAllPositions(ctx, wallet)
	if err != nil {
		return domain.SectorExposure{}, err
	}
	positions := normalizePositions(open)

	e.loadLabels(ctx)

	slugs := uniqueSlugs(positions)
	sectors := make([]domain.Sector, len(slugs))
	var calls atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.cfg.LookupConcurrency)
	for i, slug := range slugs {
		g.Go(func() error {
			s, n := e.classifier.Classify(ctx, slug, e.cache)
			sectors[i] = s
			calls.Add(int64(n))
			return nil
		})
	}
	// Classify never fails; lookup errors resolve to Other.
	_ = g.Wait()

	bySlug := make(map[string]domain.Sector, len(slugs))
	for i, slug := range slugs {
		bySlug[slug] = sectors[i]
	}

	holdings := make([]Holding, 0, len(positions))
	for _, p := range positions {
		s, ok := bySlug[p.Slug]
		if !ok {
			s = domain.SectorOther
		}
		holdings = append(holdings, Holding{Sector: s, Value: p.CurrentValue})
	}
	entries, total := Exposure(holdings)

	e.saveLabels(ctx)

	return domain.SectorExposure{
		User:         wallet,
		Sectors:      entries,
		TotalValue:   total,
		APICallsMade: int(calls.Load()),
		CachedLabels: e.cache.Len(),
	}, nil
}

// Positions returns every open position record for wallet, as the venue
// sent them.
func (e *Engine) Positions(ctx context.Context, wallet string) ([]domain.Record, error) {
	wallet, err := ValidateWallet(wallet)
	if err != nil {
		return nil, err
	}
	return e.fetcher.FetchAllPositions(ctx, wallet)
}

// ClosedPositions returns every closed position record for wallet.
func (e *Engine) ClosedPositions(ctx context.Context, wallet string) ([]domain.Record, error) {
	wallet, err := ValidateWallet(wallet)
	if err != nil {
		return nil, err
	}
	return e.fetcher.FetchAllClosedPositions(ctx, wallet)
}

// loadLabels merges the stored document into the cache once per process.
// A failed load is retried on the next call; a corrupt document counts as
// loaded and empty so the next save replaces it.
func (e *Engine) loadLabels(ctx context.Context) {
	if e.labels == nil {
		return
	}
	e.labelsMu.Lock()
	defer e.labelsMu.Unlock()
	if e.labelsLoaded {
		return
	}

	m, err := e.labels.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptLabels):
		e.logger.WarnContext(ctx, "analytics: stored label cache is corrupt, discarding it",
			slog.String("error", err.Error()),
		)
		m = nil
	case err != nil:
		e.logger.WarnContext(ctx, "analytics: load label cache failed, using memory only until a load succeeds",
			slog.String("error", err.Error()),
		)
		return
	}

	e.cache.Merge(m)
	e.labelsLoaded = true
	e.logger.InfoContext(ctx, "analytics: label cache loaded",
		slog.Int("labels", e.cache.Len()),
	)
}

func (e *Engine) saveLabels(ctx context.Context) {
	if e.labels == nil {
		return
	}
	e.labelsMu.Lock()
	loaded := e.labelsLoaded
	e.labelsMu.Unlock()
	if !loaded {
		e.logger.DebugContext(ctx, "analytics: label cache not loaded, skipping save")
		return
	}
	if err := e.labels.Save(ctx, e.cache.Snapshot()); err != nil {
		e.logger.WarnContext(ctx, "analytics: save label cache failed",
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) observe(report string, start time.Time, err *error) {
	e.metrics.ObserveReport(report, time.Since(start), *err)
}

func normalizePositions(records []domain.Record) []domain.Position {
	out := make([]domain.Position, 0, len(records))
	for _, rec := range records {
		out = append(out, NormalizePosition(rec))
	}
	return out
}

func uniqueSlugs(positions []domain.Position) []string {
	seen := make(map[string]struct{}, len(positions))
	var out []string
	for _, p := range positions {
		if p.Slug == "" {
			continue
		}
		if _, ok := seen[p.Slug]; ok {
			continue
		}
		seen[p.Slug] = struct{}{}
		out = append(out, p.Slug)
	}
	return out
}
