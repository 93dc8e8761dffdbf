package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

const (
	DefaultPageSize       = 500
	DefaultClosedPageSize = 50
	DefaultMaxPages       = 200
)

// PageFunc fetches one page of records at the given limit and offset.
type PageFunc func(ctx context.Context, limit, offset int) ([]domain.Record, error)

// Fetcher walks the offset-paginated position endpoints of a VenueClient.
type Fetcher struct {
	venue          VenueClient
	pageSize       int
	closedPageSize int
	maxPages       int
	logger         *slog.Logger
}

// NewFetcher creates a Fetcher. Non-positive sizes fall back to defaults.
func NewFetcher(venue VenueClient, pageSize, closedPageSize, maxPages int, logger *slog.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if closedPageSize <= 0 {
		closedPageSize = DefaultClosedPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		venue:          venue,
		pageSize:       pageSize,
		closedPageSize: closedPageSize,
		maxPages:       maxPages,
		logger:         logger,
	}
}

// FetchAllPositions returns every open position record for wallet.
func (f *Fetcher) FetchAllPositions(ctx context.Context, wallet string) ([]domain.Record, error) {
	return f.paginate(ctx, "positions", f.pageSize, func(ctx context.Context, limit, offset int) ([]domain.Record, error) {
		return f.venue.Positions(ctx, wallet, limit, offset)
	})
}

// FetchAllClosedPositions returns every closed position record for wallet.
func (f *Fetcher) FetchAllClosedPositions(ctx context.Context, wallet string) ([]domain.Record, error) {
	return f.paginate(ctx, "closed-positions", f.closedPageSize, func(ctx context.Context, limit, offset int) ([]domain.Record, error) {
		return f.venue.ClosedPositions(ctx, wallet, limit, offset)
	})
}

// paginate requests pages until one comes back empty or short. Any error
// aborts the walk and discards what was gathered.
func (f *Fetcher) paginate(ctx context.Context, name string, pageSize int, fetch PageFunc) ([]domain.Record, error) {
	all := []domain.Record{}
	offset := 0
	for page := 0; ; page++ {
		if page >= f.maxPages {
			f.logger.WarnContext(ctx, "analytics: page ceiling reached, returning partial listing",
				slog.String("endpoint", name),
				slog.Int("pages", page),
				slog.Int("records", len(all)),
			)
			return all, nil
		}

		batch, err := fetch(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("analytics: fetch %s: %w", name, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
		offset += pageSize
	}
	return all, nil
}
