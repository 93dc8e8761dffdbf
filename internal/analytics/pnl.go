package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// DefaultContractMultiplier scales price-difference PnL to the venue's
// reporting unit (cents per share).
const DefaultContractMultiplier = 100

// emptyDailyWindow is the number of zero buckets synthesized for an empty
// daily series.
const emptyDailyWindow = 30

// Buckets maps a period key to its accumulated, unrounded PnL.
type Buckets map[string]float64

// Aggregator turns normalized positions into a bucketed PnL series.
type Aggregator struct {
	multiplier float64
	now        func() time.Time
}

// NewAggregator creates an Aggregator. A nil clock uses time.Now.
func NewAggregator(multiplier float64, now func() time.Time) *Aggregator {
	if multiplier == 0 {
		multiplier = DefaultContractMultiplier
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{multiplier: multiplier, now: now}
}

// BucketKey formats ts (epoch seconds, 0 meaning now) as a UTC period key.
func (a *Aggregator) BucketKey(ts int64, g domain.Granularity) string {
	t := a.now()
	if ts > 0 {
		t = time.Unix(ts, 0)
	}
	return periodKey(t, g)
}

func periodKey(t time.Time, g domain.Granularity) string {
	if g == domain.GranularityDaily {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01")
}

// Realized resolves closed-position records into realized events. Records
// carrying a BUY/SELL side are treated as trade fills and matched per market.
func (a *Aggregator) Realized(records []domain.Record) []domain.ClosedPosition {
	var (
		out   []domain.ClosedPosition
		fills []domain.Record
	)
	for _, rec := range records {
		if Side(rec) != "" {
			fills = append(fills, rec)
			continue
		}
		out = append(out, NormalizeClosed(rec, a.multiplier))
	}
	return append(out, a.matchFills(fills)...)
}

type lot struct {
	qty     float64
	avgCost float64
}

// matchFills replays fills per market in timestamp order against a running
// average cost. Each SELL realizes (price - avgCost) * size on the quantity
// actually held; selling more than is held realizes nothing on the excess.
func (a *Aggregator) matchFills(fills []domain.Record) []domain.ClosedPosition {
	if len(fills) == 0 {
		return nil
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return Timestamp(fills[i]) < Timestamp(fills[j])
	})

	lots := make(map[string]*lot)
	var out []domain.ClosedPosition
	for _, rec := range fills {
		key := StringField(rec, MarketKeyFields)
		size, _ := FloatField(rec, SizeFields)
		price, ok := FloatField(rec, CurPriceFields)
		if !ok {
			price, _ = FloatField(rec, ExitPriceFields)
		}
		if size <= 0 {
			continue
		}

		l := lots[key]
		if l == nil {
			l = &lot{}
			lots[key] = l
		}

		switch Side(rec) {
		case "BUY":
			l.avgCost = (l.avgCost*l.qty + price*size) / (l.qty + size)
			l.qty += size
		case "SELL":
			sold := min(size, l.qty)
			pnl := (price - l.avgCost) * sold * a.multiplier
			l.qty -= sold
			if l.qty == 0 {
				l.avgCost = 0
			}
			out = append(out, domain.ClosedPosition{
				MarketKey: key,
				Slug:      StringField(rec, SlugFields),
				Realized:  domain.RealizedPnL{Kind: domain.RealizedDerived, Value: pnl},
				ClosedAt:  Timestamp(rec),
			})
		}
	}
	return out
}

// AddRealized adds each realized event to its period bucket. Unresolved
// events contribute 0 but still create the bucket.
func (a *Aggregator) AddRealized(b Buckets, events []domain.ClosedPosition, g domain.Granularity) {
	for _, ev := range events {
		b[a.BucketKey(ev.ClosedAt, g)] += ev.Realized.Value
	}
}

// AddUnrealized adds the mark-to-market PnL of every resolvable position to
// the current period's bucket and returns the unrounded sum. Positions with
// missing size or prices are skipped.
func (a *Aggregator) AddUnrealized(b Buckets, positions []domain.Position, g domain.Granularity) float64 {
	key := a.BucketKey(0, g)
	var sum float64
	var found bool
	for _, p := range positions {
		if !p.Resolvable() {
			continue
		}
		sum += p.UnrealizedPnL(a.multiplier)
		found = true
	}
	if found {
		b[key] += sum
	}
	return sum
}

// Series sorts the buckets, accumulates a running total and rounds the
// displayed values. It returns the series and the rounded final total.
func (a *Aggregator) Series(b Buckets, g domain.Granularity) ([]domain.PnLBucket, float64) {
	if len(b) == 0 {
		if g == domain.GranularityDaily {
			return a.emptyDaily(), 0
		}
		return []domain.PnLBucket{}, 0
	}

	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]domain.PnLBucket, 0, len(keys))
	var cum float64
	for _, k := range keys {
		cum += b[k]
		series = append(series, domain.PnLBucket{
			Date:          k,
			PnL:           Round2(b[k]),
			CumulativePnL: Round2(cum),
		})
	}
	return series, Round2(cum)
}

func (a *Aggregator) emptyDaily() []domain.PnLBucket {
	today := a.now().UTC()
	series := make([]domain.PnLBucket, 0, emptyDailyWindow)
	for i := emptyDailyWindow - 1; i >= 0; i-- {
		series = append(series, domain.PnLBucket{
			Date: today.AddDate(0, 0, -i).Format("2006-01-02"),
		})
	}
	return series
}

// Round2 rounds v to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
