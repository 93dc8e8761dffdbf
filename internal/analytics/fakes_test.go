package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// fakeVenue serves fixed position listings, honoring limit/offset.
type fakeVenue struct {
	mu        sync.Mutex
	open      []domain.Record
	closed    []domain.Record
	value     []domain.Record
	openErr   error
	closedErr error
	calls     []string
}

func (f *fakeVenue) Positions(_ context.Context, _ string, limit, offset int) ([]domain.Record, error) {
	f.record("positions")
	if f.openErr != nil {
		return nil, f.openErr
	}
	return window(f.open, limit, offset), nil
}

func (f *fakeVenue) ClosedPositions(_ context.Context, _ string, limit, offset int) ([]domain.Record, error) {
	f.record("closed-positions")
	if f.closedErr != nil {
		return nil, f.closedErr
	}
	return window(f.closed, limit, offset), nil
}

func (f *fakeVenue) Value(_ context.Context, _ string) ([]domain.Record, error) {
	f.record("value")
	return f.value, nil
}

func (f *fakeVenue) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeVenue) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func window(all []domain.Record, limit, offset int) []domain.Record {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// fakeTags resolves markets from in-memory maps and counts calls.
type fakeTags struct {
	mu        sync.Mutex
	markets   map[string]domain.Market
	tags      map[string][]domain.Tag
	failSlugs map[string]bool
	bySlug    int
	byID      int
}

func (f *fakeTags) MarketBySlug(_ context.Context, slug string) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySlug++
	if f.failSlugs[slug] {
		return domain.Market{}, errors.New("gamma unavailable")
	}
	m, ok := f.markets[slug]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeTags) MarketTags(_ context.Context, id string) ([]domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID++
	return f.tags[id], nil
}

func (f *fakeTags) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySlug + f.byID
}

// memLabelStore is an in-memory domain.LabelStore.
type memLabelStore struct {
	mu      sync.Mutex
	data    map[string]string
	loadErr error
	saveErr error
	// failLoads makes the first failLoads calls to Load fail.
	failLoads int
	loads     int
	saves     int
}

func (m *memLabelStore) Load(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.loads <= m.failLoads {
		return nil, errors.New("read timeout")
	}
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memLabelStore) Save(_ context.Context, labels map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = labels
	return nil
}

func tagList(labels ...string) []domain.Tag {
	out := make([]domain.Tag, 0, len(labels))
	for _, l := range labels {
		out = append(out, domain.Tag{Label: l})
	}
	return out
}
