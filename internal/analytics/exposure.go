package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// Holding is a position's current value attributed to a sector.
type Holding struct {
	Sector domain.Sector
	Value  float64
}

// Exposure sums holdings per sector and ranks them by value, descending,
// ties broken by sector name. Percentages are rounded to 2 dp and the
// rounding residual is folded into the largest entry so they sum to exactly
// 100 whenever the total is positive. The returned total is rounded.
func Exposure(holdings []Holding) ([]domain.SectorExposureEntry, float64) {
	sums := make(map[domain.Sector]float64)
	var total float64
	for _, h := range holdings {
		sums[h.Sector] += h.Value
		total += h.Value
	}

	entries := make([]domain.SectorExposureEntry, 0, len(sums))
	for s, v := range sums {
		entries = append(entries, domain.SectorExposureEntry{Sector: s, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Sector < entries[j].Sector
	})

	if total > 0 {
		hundred := decimal.NewFromInt(100)
		dTotal := decimal.NewFromFloat(total)
		sum := decimal.Zero
		for i := range entries {
			pct := decimal.NewFromFloat(entries[i].Value).Div(dTotal).Mul(hundred).Round(2)
			entries[i].Percentage = pct.InexactFloat64()
			sum = sum.Add(pct)
		}
		if len(entries) > 0 {
			residual := hundred.Sub(sum)
			entries[0].Percentage = decimal.NewFromFloat(entries[0].Percentage).Add(residual).InexactFloat64()
		}
	}

	for i := range entries {
		entries[i].Value = Round2(entries[i].Value)
	}
	return entries, Round2(total)
}
