package domain

import "fmt"

// Granularity is the PnL bucket width.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// PnLBucket is one period of the PnL series.
type PnLBucket struct {
	Date          string  `json:"date"`
	PnL           float64 `json:"pnl"`
	CumulativePnL float64 `json:"cumulativePnL"`
}

// PnLHistory is the PnL time series for a wallet.
type PnLHistory struct {
	User     string      `json:"user"`
	Data     []PnLBucket `json:"data"`
	TotalPnL float64     `json:"totalPnL"`
}

// TotalPnL splits a wallet's PnL into realized and unrealized parts.
type TotalPnL struct {
	User          string  `json:"user"`
	RealizedPnL   float64 `json:"realizedPnL"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
	TotalPnL      float64 `json:"totalPnL"`
}

// UnrealizedProfit is the mark-to-market PnL of open positions.
type UnrealizedProfit struct {
	User          string  `json:"user"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
	Positions     int     `json:"positions"`
}

// SectorExposureEntry is one ranked row of a sector exposure report.
type SectorExposureEntry struct {
	Sector     Sector  `json:"sector"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// SectorExposure is the sector breakdown of a wallet's open positions.
type SectorExposure struct {
	User         string                `json:"user"`
	Sectors      []SectorExposureEntry `json:"sectors"`
	TotalValue   float64               `json:"totalValue"`
	APICallsMade int                   `json:"apiCallsMade"`
	CachedLabels int                   `json:"cachedLabels"`
}

// ParseGranularity maps a query value to a Granularity. Empty means daily.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityDaily:
		return GranularityDaily, nil
	case GranularityMonthly:
		return GranularityMonthly, nil
	default:
		return "", fmt.Errorf("%w: granularity must be daily or monthly, got %q", ErrInvalidRequest, s)
	}
}

// PortfolioValue is the venue's own valuation of a wallet's open positions.
type PortfolioValue struct {
	User  string  `json:"user"`
	Value float64 `json:"value"`
}
