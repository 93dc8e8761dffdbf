package domain

// Position is an open holding for a wallet, normalized from a data-API
// record. The Has* flags record whether the corresponding field was present
// upstream; a zero value alone cannot tell "missing" from "zero".
type Position struct {
	MarketKey    string
	Slug         string
	Title        string
	Outcome      string
	Size         float64
	AvgPrice     float64
	CurPrice     float64
	CurrentValue float64
	InitialValue float64

	HasSize     bool
	HasAvgPrice bool
	HasCurPrice bool
}

// Resolvable reports whether size, entry and current price are all known.
func (p Position) Resolvable() bool {
	return p.HasSize && p.HasAvgPrice && p.HasCurPrice
}

// UnrealizedPnL returns the mark-to-market PnL scaled by multiplier. Callers
// should check Resolvable first.
func (p Position) UnrealizedPnL(multiplier float64) float64 {
	return (p.CurPrice - p.AvgPrice) * p.Size * multiplier
}

// RealizedKind tags how a closed position's PnL was obtained.
type RealizedKind int

const (
	// RealizedUnresolved means neither an upstream PnL field nor a complete
	// size/entry/exit triple was available. The value is 0.
	RealizedUnresolved RealizedKind = iota
	// RealizedSourced means the venue supplied the PnL directly.
	RealizedSourced
	// RealizedDerived means the PnL was computed from size, entry and exit.
	RealizedDerived
)

func (k RealizedKind) String() string {
	switch k {
	case RealizedSourced:
		return "sourced"
	case RealizedDerived:
		return "derived"
	default:
		return "unresolved"
	}
}

// RealizedPnL is the tagged result of resolving one closed position.
type RealizedPnL struct {
	Kind  RealizedKind
	Field string // upstream field name when Kind == RealizedSourced
	Value float64
}

// ClosedPosition is a realized position (or a realized SELL fill) with its
// close time in epoch seconds. ClosedAt == 0 means "unknown, use now".
type ClosedPosition struct {
	MarketKey string
	Slug      string
	Realized  RealizedPnL
	ClosedAt  int64
}
