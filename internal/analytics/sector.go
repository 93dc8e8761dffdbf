package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/metrics"
)

// DefaultTagLookupTimeout bounds one classification's upstream calls.
const DefaultTagLookupTimeout = 10 * time.Second

// LabelCache maps market slugs to sector labels. Every stored value is
// already normalized, so reads never re-validate. Safe for concurrent use.
type LabelCache struct {
	mu     sync.RWMutex
	labels map[string]domain.Sector
}

// NewLabelCache returns an empty cache.
func NewLabelCache() *LabelCache {
	return &LabelCache{labels: make(map[string]domain.Sector)}
}

// Get returns the cached label for slug.
func (c *LabelCache) Get(slug string) (domain.Sector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.labels[slug]
	return s, ok
}

// Set normalizes label and stores it under slug, returning the stored value.
func (c *LabelCache) Set(slug, label string) domain.Sector {
	s := domain.NormalizeSector(label)
	c.mu.Lock()
	c.labels[slug] = s
	c.mu.Unlock()
	return s
}

// Len returns the number of cached slugs.
func (c *LabelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.labels)
}

// Merge adds the entries of m that are not cached yet, normalizing labels
// outside the sector enumeration to Other. Existing entries win.
func (c *LabelCache) Merge(m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for slug, label := range m {
		if slug == "" {
			continue
		}
		if _, ok := c.labels[slug]; ok {
			continue
		}
		c.labels[slug] = domain.NormalizeSector(label)
	}
}

// Snapshot returns a copy suitable for persisting.
func (c *LabelCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.labels))
	for slug, s := range c.labels {
		out[slug] = string(s)
	}
	return out
}

// TagLookup resolves market tags from the tagging service.
type TagLookup interface {
	MarketBySlug(ctx context.Context, slug string) (domain.Market, error)
	MarketTags(ctx context.Context, marketID string) ([]domain.Tag, error)
}

// Classifier assigns a sector to a market slug, consulting a LabelCache
// before the tagging service.
type Classifier struct {
	tags    TagLookup
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClassifier creates a Classifier. A non-positive timeout uses
// DefaultTagLookupTimeout.
func NewClassifier(tags TagLookup, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTagLookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{tags: tags, timeout: timeout, metrics: m, logger: logger}
}

// Classify returns the sector for slug and the number of upstream calls it
// took. Misses are resolved through the tagging service and written to
// cache, including failures, which are stored as Other so they are not
// retried for the cache's lifetime. An empty slug, or a lookup cut short by
// the caller's ctx, is Other with no cache entry.
func (c *Classifier) Classify(ctx context.Context, slug string, cache *LabelCache) (domain.Sector, int) {
	if slug == "" {
		return domain.SectorOther, 0
	}
	if s, ok := cache.Get(slug); ok {
		c.metrics.LabelCacheHit()
		return s, 0
	}
	c.metrics.LabelCacheMiss()

	label, calls, err := c.lookup(ctx, slug)
	switch {
	case err != nil && ctx.Err() != nil:
		c.logger.DebugContext(ctx, "analytics: tag lookup abandoned",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		c.metrics.TagLookup("canceled")
		return domain.SectorOther, calls
	case err != nil:
		c.logger.WarnContext(ctx, "analytics: tag lookup failed, using Other",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		c.metrics.TagLookup("error")
	case label == "":
		c.metrics.TagLookup("unmatched")
	default:
		c.metrics.TagLookup("matched")
	}
	return cache.Set(slug, label), calls
}

// lookup returns the label of the first tag in the enumeration, or "" when
// none matches.
func (c *Classifier) lookup(ctx context.Context, slug string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	calls := 1
	market, err := c.tags.MarketBySlug(ctx, slug)
	if err != nil {
		return "", calls, err
	}

	tags := market.Tags
	if len(tags) == 0 && market.ID != "" {
		calls++
		tags, err = c.tags.MarketTags(ctx, market.ID)
		if err != nil {
			return "", calls, err
		}
	}
	return firstSector(tags), calls, nil
}

func firstSector(tags []domain.Tag) string {
	for _, t := range tags {
		if domain.IsKnownSector(t.Label) {
			return string(domain.NormalizeSector(t.Label))
		}
	}
	return ""
}
