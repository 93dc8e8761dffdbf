package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// DefaultDataHost is the public Polymarket data API root.
const DefaultDataHost = "https://data-api.polymarket.com"

// DataClient is the REST client for the Polymarket data API, which serves
// per-wallet positions, closed positions, activity and portfolio value.
type DataClient struct {
	t *transport
}

// NewDataClient creates a new data API client.
//
// baseURL is the data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string, opts ...Option) *DataClient {
	if baseURL == "" {
		baseURL = DefaultDataHost
	}
	return &DataClient{t: newTransport("data", baseURL, opts)}
}

// Positions returns one page of open positions for user.
func (c *DataClient) Positions(ctx context.Context, user string, limit, offset int) ([]domain.Record, error) {
	return c.page(ctx, "positions", "/positions", user, limit, offset)
}

// ClosedPositions returns one page of closed (realized) positions for user.
func (c *DataClient) ClosedPositions(ctx context.Context, user string, limit, offset int) ([]domain.Record, error) {
	return c.page(ctx, "closed-positions", "/closed-positions", user, limit, offset)
}

// Activity returns one page of on-chain activity (trades, redemptions, ...)
// for user.
func (c *DataClient) Activity(ctx context.Context, user string, limit, offset int) ([]domain.Record, error) {
	return c.page(ctx, "activity", "/activity", user, limit, offset)
}

// Value returns the venue's own portfolio valuation for user. The endpoint
// answers with an array of {user, value} rows; an object is accepted too.
func (c *DataClient) Value(ctx context.Context, user string) ([]domain.Record, error) {
	params := url.Values{}
	params.Set("user", user)

	op := "polymarket/data: get value"
	body, err := c.t.doGet(ctx, op, "value", "/value", params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("decode value: %w", err)}
	}
	if records == nil {
		// Single-object response without a "data" wrapper.
		var one domain.Record
		if err := decodeInto(body, &one); err == nil && len(one) > 0 {
			records = []domain.Record{one}
		}
	}
	return records, nil
}

func (c *DataClient) page(ctx context.Context, endpoint, path, user string, limit, offset int) ([]domain.Record, error) {
	params := url.Values{}
	params.Set("user", user)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	op := fmt.Sprintf("polymarket/data: get %s offset=%d", endpoint, offset)
	body, err := c.t.doGet(ctx, op, endpoint, path, params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("decode %s: %w", endpoint, err)}
	}
	return records, nil
}
