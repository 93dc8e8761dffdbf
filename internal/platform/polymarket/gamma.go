package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// DefaultGammaHost is the public Gamma API root.
const DefaultGammaHost = "https://gamma-api.polymarket.com"

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery, metadata and tags.
type GammaClient struct {
	t *transport
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, opts ...Option) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultGammaHost
	}
	return &GammaClient{t: newTransport("gamma", baseURL, opts)}
}

// GetMarkets returns a page of markets as the raw Gamma JSON array. active
// filters by status when non-nil.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int, active *bool) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if active != nil {
		params.Set("active", strconv.FormatBool(*active))
	}

	body, err := g.t.doGet(ctx, "polymarket/gamma: get markets", "markets", "/markets", params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.FetchError{Op: "polymarket/gamma: get markets", Err: fmt.Errorf("invalid JSON body")}
	}
	return json.RawMessage(body), nil
}

// GetMarket returns a single market by its ID as raw Gamma JSON.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (json.RawMessage, error) {
	op := fmt.Sprintf("polymarket/gamma: get market %s", id)
	body, err := g.t.doGet(ctx, op, "market", "/markets/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("invalid JSON body")}
	}
	return json.RawMessage(body), nil
}

// MarketBySlug returns a single market looked up by its URL slug, including
// any tags embedded in the market record.
func (g *GammaClient) MarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	params := url.Values{}
	params.Set("slug", slug)

	op := fmt.Sprintf("polymarket/gamma: get market by slug %s", slug)
	body, err := g.t.doGet(ctx, op, "markets-by-slug", "/markets", params)
	if err != nil {
		return domain.Market{}, err
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.Market{}, &domain.FetchError{Op: op, Err: fmt.Errorf("decode markets: %w", err)}
	}

	if len(apiMarkets) == 0 {
		return domain.Market{}, &domain.FetchError{Op: op, Err: fmt.Errorf("%w: slug=%s", domain.ErrNotFound, slug)}
	}

	return apiMarkets[0].ToDomainMarket(), nil
}

// MarketTags returns the tags attached to a market via the dedicated tags
// endpoint.
func (g *GammaClient) MarketTags(ctx context.Context, marketID string) ([]domain.Tag, error) {
	op := fmt.Sprintf("polymarket/gamma: get tags for market %s", marketID)
	body, err := g.t.doGet(ctx, op, "market-tags", "/markets/"+url.PathEscape(marketID)+"/tags", nil)
	if err != nil {
		return nil, err
	}

	var apiTags []APITag
	if err := json.Unmarshal(body, &apiTags); err != nil {
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("decode tags: %w", err)}
	}

	tags := make([]domain.Tag, 0, len(apiTags))
	for _, t := range apiTags {
		tags = append(tags, t.ToDomainTag())
	}
	return tags, nil
}
