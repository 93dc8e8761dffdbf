// Package polymarket contains read-only REST clients for the Polymarket data
// API (positions, activity, value) and the Gamma API (markets and tags).
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/metrics"
)

const userAgent = "polyportfolio/1.0"

// Option configures a client.
type Option func(*transport)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) { t.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(t *transport) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests to rps requests per second. A
// non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimiter shares an existing limiter between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *transport) { t.limiter = l }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *transport) { t.metrics = m }
}

// transport is the GET plumbing shared by DataClient and GammaClient.
type transport struct {
	api        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

func newTransport(api, baseURL string, opts []Option) *transport {
	t := &transport{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// doGet sends an unauthenticated GET and returns the body of a 2xx response.
// Every failure is a *domain.FetchError tagged with op.
func (t *transport) doGet(ctx context.Context, op, endpoint, path string, params url.Values) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	u := t.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.metrics.ObserveUpstream(t.api, endpoint, 0, time.Since(start))
		return nil, &domain.FetchError{Op: op, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()
	t.metrics.ObserveUpstream(t.api, endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, &domain.FetchError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := strings.TrimSpace(string(body))
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return errors.New(bodyStr)
	}
}

// decodeRecords decodes either a bare JSON array or an object wrapping the
// array in "data". Numbers are kept as json.Number.
func decodeRecords(body []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data []domain.Record `json:"data"`
		}
		if err := dec.Decode(&wrapped); err != nil {
			return nil, err
		}
		return wrapped.Data, nil
	}

	var records []domain.Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeInto(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
