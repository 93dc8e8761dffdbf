package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAnalytics struct {
	err         error
	granularity domain.Granularity
	wallet      string
}

func (f *fakeAnalytics) PnLHistory(_ context.Context, wallet string, g domain.Granularity) (domain.PnLHistory, error) {
	f.wallet, f.granularity = wallet, g
	if f.err != nil {
		return domain.PnLHistory{}, f.err
	}
	return domain.PnLHistory{
		User:     wallet,
		Data:     []domain.PnLBucket{{Date: "2024-01", PnL: 100, CumulativePnL: 100}},
		TotalPnL: 100,
	}, nil
}

func (f *fakeAnalytics) TotalPnL(_ context.Context, wallet string) (domain.TotalPnL, error) {
	return domain.TotalPnL{User: wallet, RealizedPnL: 1, UnrealizedPnL: 2, TotalPnL: 3}, f.err
}

func (f *fakeAnalytics) UnrealizedProfit(_ context.Context, wallet string) (domain.UnrealizedProfit, error) {
	return domain.UnrealizedProfit{User: wallet}, f.err
}

func (f *fakeAnalytics) SectorExposure(_ context.Context, wallet string) (domain.SectorExposure, error) {
	return domain.SectorExposure{User: wallet, Sectors: []domain.SectorExposureEntry{}}, f.err
}

func (f *fakeAnalytics) Value(_ context.Context, wallet string) (domain.PortfolioValue, error) {
	return domain.PortfolioValue{User: wallet, Value: 9.5}, f.err
}

func (f *fakeAnalytics) Positions(context.Context, string) ([]domain.Record, error) {
	return []domain.Record{{"slug": "a"}}, f.err
}

func (f *fakeAnalytics) ClosedPositions(context.Context, string) ([]domain.Record, error) {
	return []domain.Record{}, f.err
}

type fakeVenue struct {
	limit, offset int
	active        *bool
	err           error
}

func (f *fakeVenue) Activity(_ context.Context, _ string, limit, offset int) ([]domain.Record, error) {
	f.limit, f.offset = limit, offset
	return nil, f.err
}

func (f *fakeVenue) GetMarkets(_ context.Context, limit, offset int, active *bool) (json.RawMessage, error) {
	f.limit, f.offset, f.active = limit, offset, active
	return json.RawMessage(`[{"id":"1"}]`), f.err
}

func (f *fakeVenue) GetMarket(_ context.Context, id string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPnLDefaultsToDaily(t *testing.T) {
	svc := &fakeAnalytics{}
	h := NewAnalyticsHandler(svc, discard)

	rec := httptest.NewRecorder()
	h.PnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?user=0xabc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.GranularityDaily, svc.granularity)
	assert.JSONEq(t, `{"user":"0xabc","data":[{"date":"2024-01","pnl":100,"cumulativePnL":100}],"totalPnL":100}`, rec.Body.String())
}

func TestPnLRejectsUnknownGranularity(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{}, discard)

	rec := httptest.NewRecorder()
	h.PnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?user=0xabc&granularity=hourly", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.NotNil(t, body.StatusCode)
	assert.Equal(t, 400, *body.StatusCode)
}

func TestMissingUserIs400(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{}, discard)
	rec := httptest.NewRecorder()
	h.SectorExposure(rec, httptest.NewRequest(http.MethodGet, "/api/sector-exposure", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "user")
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   *int
	}{
		{"invalid wallet", domain.ErrInvalidWallet, 400, intPtr(400)},
		{"upstream status kept", &domain.FetchError{Op: "x", StatusCode: 429, Err: domain.ErrRateLimited}, 429, intPtr(429)},
		{"transport failure", &domain.FetchError{Op: "x", Err: errors.New("dial tcp")}, 500, nil},
		{"plain error", errors.New("boom"), 500, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnalyticsHandler(&fakeAnalytics{err: tt.err}, discard)
			rec := httptest.NewRecorder()
			h.TotalPnL(rec, httptest.NewRequest(http.MethodGet, "/api/total-pnl?user=0xabc", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantCode, body.StatusCode)
		})
	}
}

func TestActivityPaging(t *testing.T) {
	v := &fakeVenue{}
	h := NewVenueHandler(v, v, discard)

	rec := httptest.NewRecorder()
	h.Activity(rec, httptest.NewRequest(http.MethodGet, "/api/activity?user=0xabc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, v.limit)
	assert.Equal(t, 0, v.offset)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, q := range []string{"limit=0", "limit=1001", "limit=abc", "offset=-1"} {
		rec = httptest.NewRecorder()
		h.Activity(rec, httptest.NewRequest(http.MethodGet, "/api/activity?user=0xabc&"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListMarkets(t *testing.T) {
	v := &fakeVenue{}
	h := NewVenueHandler(v, v, discard)

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets?limit=5&offset=10&active=false", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, v.limit)
	assert.Equal(t, 10, v.offset)
	require.NotNil(t, v.active)
	assert.False(t, *v.active)
	assert.JSONEq(t, `[{"id":"1"}]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	assert.Equal(t, 100, v.limit)
	assert.Nil(t, v.active)
}

func TestGetMarketNotFound(t *testing.T) {
	v := &fakeVenue{err: &domain.FetchError{Op: "get market", StatusCode: 404, Err: domain.ErrNotFound}}
	h := NewVenueHandler(v, v, discard)

	req := httptest.NewRequest(http.MethodGet, "/api/markets/999", nil)
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.GetMarket(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(discard)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func intPtr(v int) *int { return &v }
