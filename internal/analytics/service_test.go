package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

const wallet = "0x56687bf447db6ffa42ffe2204a05edaa20f55839"

func newTestEngine(venue *fakeVenue, ft *fakeTags, store domain.LabelStore) *Engine {
	return NewEngine(venue, ft, store, EngineConfig{PageSize: 2, ClosedPageSize: 2}, nil, fixedClock, nil)
}

func TestValidateWallet(t *testing.T) {
	got, err := ValidateWallet("  0x56687BF447DB6FFA42FFE2204A05EDAA20F55839 ")
	require.NoError(t, err)
	assert.Equal(t, "0x56687BF447DB6FFA42FFE2204A05EDAA20F55839", got)

	got, err = ValidateWallet(wallet)
	require.NoError(t, err)
	assert.Equal(t, wallet, got)

	for _, bad := range []string{"", "0x123", "56687bf447db6ffa42ffe2204a05edaa20f55839", "0xzz687bf447db6ffa42ffe2204a05edaa20f55839"} {
		_, err := ValidateWallet(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidWallet, bad)
	}
}

func TestEnginePnLHistory(t *testing.T) {
	venue := &fakeVenue{
		closed: []domain.Record{
			{"pnl": 100.0, "timestamp": ts(2024, 1, 5)},
			{"pnl": 50.0, "timestamp": ts(2024, 2, 5)},
			{"size": 10.0, "avgPrice": 0.5, "curPrice": 0.6, "timestamp": ts(2024, 2, 6)},
		},
		open: []domain.Record{
			{"slug": "a", "size": 10.0, "avgPrice": 0.5, "curPrice": 0.4},
		},
	}
	e := newTestEngine(venue, &fakeTags{}, nil)

	h, err := e.PnLHistory(context.Background(), wallet, domain.GranularityMonthly)
	require.NoError(t, err)
	assert.Equal(t, wallet, h.User)
	assert.Equal(t, []domain.PnLBucket{
		{Date: "2024-01", PnL: 100, CumulativePnL: 100},
		{Date: "2024-02", PnL: 150, CumulativePnL: 250},
		{Date: "2024-03", PnL: -100, CumulativePnL: 150},
	}, h.Data)
	assert.Equal(t, 150.0, h.TotalPnL)
}

func TestEnginePnLHistoryFailsOnClosedFetch(t *testing.T) {
	venue := &fakeVenue{closedErr: &domain.FetchError{Op: "closed", StatusCode: 503, Err: errors.New("down")}}
	e := newTestEngine(venue, &fakeTags{}, nil)

	_, err := e.PnLHistory(context.Background(), wallet, domain.GranularityDaily)
	require.Error(t, err)
	assert.Equal(t, 503, domain.StatusCode(err))
	assert.Zero(t, venue.count("positions"), "unrealized phase is skipped")
}

func TestEngineRejectsInvalidWallet(t *testing.T) {
	venue := &fakeVenue{}
	e := newTestEngine(venue, &fakeTags{}, nil)

	_, err := e.SectorExposure(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidWallet)
	assert.Empty(t, venue.calls)
}

func TestEngineTotalAndUnrealized(t *testing.T) {
	venue := &fakeVenue{
		closed: []domain.Record{{"pnl": 12.5, "timestamp": ts(2024, 1, 5)}},
		open: []domain.Record{
			{"slug": "a", "size": 10.0, "avgPrice": 0.5, "curPrice": 0.6},
			{"slug": "b", "size": 3.0},
		},
	}
	e := newTestEngine(venue, &fakeTags{}, nil)

	total, err := e.TotalPnL(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 12.5, total.RealizedPnL)
	assert.Equal(t, 100.0, total.UnrealizedPnL)
	assert.Equal(t, 112.5, total.TotalPnL)

	u, err := e.UnrealizedProfit(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 100.0, u.UnrealizedPnL)
	assert.Equal(t, 1, u.Positions)
}

func TestEngineValue(t *testing.T) {
	venue := &fakeVenue{value: []domain.Record{{"user": wallet, "value": "123.456"}}}
	e := newTestEngine(venue, &fakeTags{}, nil)

	v, err := e.Value(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 123.46, v.Value)
}

func TestEngineSectorExposure(t *testing.T) {
	venue := &fakeVenue{open: []domain.Record{
		{"slug": "election", "currentValue": 60.0},
		{"slug": "btc", "currentValue": 30.0},
		{"slug": "btc", "currentValue": 10.0},
		{"slug": "", "currentValue": 0.0},
	}}
	ft := &fakeTags{
		markets: map[string]domain.Market{
			"election": {ID: "1", Tags: tagList("Politics")},
			"btc":      {ID: "2"},
		},
		tags: map[string][]domain.Tag{"2": tagList("Crypto")},
	}
	store := &memLabelStore{data: map[string]string{"stale": "Nonsense"}}
	e := newTestEngine(venue, ft, store)

	got, err := e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, 100.0, got.TotalValue)
	assert.Equal(t, 3, got.APICallsMade)
	assert.Equal(t, 3, got.CachedLabels)
	require.Len(t, got.Sectors, 3)
	assert.Equal(t, domain.SectorExposureEntry{Sector: "Politics", Value: 60, Percentage: 60}, got.Sectors[0])
	assert.Equal(t, domain.SectorExposureEntry{Sector: "Crypto", Value: 40, Percentage: 40}, got.Sectors[1])
	assert.Equal(t, domain.SectorOther, got.Sectors[2].Sector)

	assert.Equal(t, map[string]string{"stale": "Other", "election": "Politics", "btc": "Crypto"}, store.data)

	// Second request is served from the cache and does not reload the store.
	got, err = e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)
	assert.Zero(t, got.APICallsMade)
	assert.Equal(t, 1, store.loads)
	assert.Equal(t, 2, store.saves)
}

func TestEngineLabelStoreFailuresAreSwallowed(t *testing.T) {
	venue := &fakeVenue{open: []domain.Record{{"slug": "m", "currentValue": 5.0}}}
	ft := &fakeTags{markets: map[string]domain.Market{"m": {ID: "1", Tags: tagList("Tech")}}}
	for _, store := range []*memLabelStore{
		{loadErr: errors.New("disk gone")},
		{saveErr: errors.New("disk gone")},
	} {
		e := newTestEngine(venue, ft, store)

		got, err := e.SectorExposure(context.Background(), wallet)
		require.NoError(t, err)
		assert.Equal(t, domain.Sector("Tech"), got.Sectors[0].Sector)
		assert.Equal(t, 100.0, got.Sectors[0].Percentage)
	}
}

func TestEngineKeepsWalletCasing(t *testing.T) {
	const checksummed = "0x56687bF447db6FFA42fFE2204A05EDAA20F55839"
	e := newTestEngine(&fakeVenue{}, &fakeTags{}, nil)

	got, err := e.UnrealizedProfit(context.Background(), checksummed)
	require.NoError(t, err)
	assert.Equal(t, checksummed, got.User)
}

func TestEngineRetriesLabelLoadAndNeverOverwritesUnloadedStore(t *testing.T) {
	stored := make(map[string]string, 500)
	for i := range 500 {
		stored[fmt.Sprintf("old-%d", i)] = "Politics"
	}
	venue := &fakeVenue{open: []domain.Record{{"slug": "m", "currentValue": 5.0}}}
	ft := &fakeTags{markets: map[string]domain.Market{"m": {ID: "1", Tags: tagList("Tech")}}}
	store := &memLabelStore{data: stored, failLoads: 1}
	e := newTestEngine(venue, ft, store)

	got, err := e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, domain.Sector("Tech"), got.Sectors[0].Sector)
	assert.Equal(t, 1, store.loads)
	assert.Zero(t, store.saves, "nothing is saved before a load succeeds")
	assert.Len(t, store.data, 500)

	got, err = e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads, "a failed load is retried")
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.data, 501)
	assert.Equal(t, "Tech", store.data["m"])
	assert.Equal(t, 501, got.CachedLabels)

	_, err = e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads, "a successful load is not repeated")
}

func TestEngineCorruptLabelStoreIsReplaced(t *testing.T) {
	venue := &fakeVenue{open: []domain.Record{{"slug": "m", "currentValue": 5.0}}}
	ft := &fakeTags{markets: map[string]domain.Market{"m": {ID: "1", Tags: tagList("Tech")}}}
	store := &memLabelStore{loadErr: fmt.Errorf("decode: %w", domain.ErrCorruptLabels)}
	e := newTestEngine(venue, ft, store)

	_, err := e.SectorExposure(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, map[string]string{"m": "Tech"}, store.data)
}
