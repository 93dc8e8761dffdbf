package analytics

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// Alias tables, evaluated first-match. The order is the policy: a field
// earlier in a list wins over a later one whenever both are present.
var (
	SizeFields         = []string{"shares", "size", "quantity", "amount"}
	AvgPriceFields     = []string{"avgPrice", "averagePrice", "costBasis"}
	CurPriceFields     = []string{"curPrice", "currentPrice", "price"}
	ExitPriceFields    = []string{"sellPrice", "closePrice", "exitPrice", "sell_price", "close_price", "exit_price"}
	PnLFields          = []string{"pnl", "realizedPnl", "cashPnl", "profit", "realized_pnl", "cash_pnl"}
	TimestampFields    = []string{"timestamp", "closedAt", "closeTime", "endDate", "createdAt"}
	CurrentValueFields = []string{"currentValue", "current_value", "value"}
	InitialValueFields = []string{"initialValue", "initial_value"}
	SlugFields         = []string{"slug", "marketSlug", "market_slug"}
	MarketKeyFields    = []string{"conditionId", "condition_id", "market", "asset", "slug"}
)

// msThreshold separates epoch seconds from epoch milliseconds.
const msThreshold = 1e10

// Present reports whether key exists in rec with a non-null, non-empty value.
func Present(rec domain.Record, key string) bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// First returns the first alias present in rec.
func First(rec domain.Record, aliases []string) (string, any, bool) {
	for _, k := range aliases {
		if Present(rec, k) {
			return k, rec[k], true
		}
	}
	return "", nil, false
}

// Float converts a JSON scalar to float64. Unparseable values yield ok=false.
func Float(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatField returns the first present alias parsed as a number. A present
// but unparseable value counts as 0 and still reports found.
func FloatField(rec domain.Record, aliases []string) (float64, bool) {
	_, v, ok := First(rec, aliases)
	if !ok {
		return 0, false
	}
	f, _ := Float(v)
	return f, true
}

// StringField returns the first present alias as a string.
func StringField(rec domain.Record, aliases []string) string {
	_, v, ok := First(rec, aliases)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EpochSeconds parses a timestamp value. Numbers above 1e10 are treated as
// milliseconds. Numeric strings follow the same rule; other strings are tried
// as ISO-8601. Anything unparseable yields 0.
func EpochSeconds(v any) int64 {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			for _, layout := range isoLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC().Unix()
				}
			}
			return 0
		}
	}
	f, ok := Float(v)
	if !ok || f <= 0 {
		return 0
	}
	if f > msThreshold {
		f /= 1000
	}
	return int64(f)
}

// Timestamp returns the close/event time of rec in epoch seconds, or 0.
func Timestamp(rec domain.Record) int64 {
	_, v, ok := First(rec, TimestampFields)
	if !ok {
		return 0
	}
	return EpochSeconds(v)
}

// NormalizePosition maps an open-position record onto domain.Position.
func NormalizePosition(rec domain.Record) domain.Position {
	p := domain.Position{
		MarketKey: StringField(rec, MarketKeyFields),
		Slug:      StringField(rec, SlugFields),
		Title:     StringField(rec, []string{"title"}),
		Outcome:   StringField(rec, []string{"outcome"}),
	}
	p.Size, p.HasSize = FloatField(rec, SizeFields)
	p.AvgPrice, p.HasAvgPrice = FloatField(rec, AvgPriceFields)
	p.CurPrice, p.HasCurPrice = FloatField(rec, CurPriceFields)
	p.InitialValue, _ = FloatField(rec, InitialValueFields)

	if v, ok := FloatField(rec, CurrentValueFields); ok {
		p.CurrentValue = v
	} else {
		p.CurrentValue = p.Size * p.CurPrice
	}
	return p
}

// ResolveRealized decides how a closed-position record's PnL is obtained:
// an upstream PnL field wins, otherwise it is derived from size, entry and
// exit, otherwise it is unresolved and contributes 0.
func ResolveRealized(rec domain.Record, multiplier float64) domain.RealizedPnL {
	if field, v, ok := First(rec, PnLFields); ok {
		f, _ := Float(v)
		return domain.RealizedPnL{Kind: domain.RealizedSourced, Field: field, Value: f}
	}

	size, hasSize := FloatField(rec, SizeFields)
	entry, hasEntry := FloatField(rec, AvgPriceFields)
	exit, hasExit := FloatField(rec, CurPriceFields)
	if !hasExit {
		exit, hasExit = FloatField(rec, ExitPriceFields)
	}
	if hasSize && hasEntry && hasExit {
		return domain.RealizedPnL{
			Kind:  domain.RealizedDerived,
			Value: (exit - entry) * size * multiplier,
		}
	}
	return domain.RealizedPnL{Kind: domain.RealizedUnresolved}
}

// NormalizeClosed maps a closed-position record onto domain.ClosedPosition.
func NormalizeClosed(rec domain.Record, multiplier float64) domain.ClosedPosition {
	return domain.ClosedPosition{
		MarketKey: StringField(rec, MarketKeyFields),
		Slug:      StringField(rec, SlugFields),
		Realized:  ResolveRealized(rec, multiplier),
		ClosedAt:  Timestamp(rec),
	}
}

// Side returns the upper-cased trade side ("BUY"/"SELL") of a fill record,
// or "" for a position record.
func Side(rec domain.Record) string {
	s, ok := rec["side"].(string)
	if !ok {
		return ""
	}
	switch s = strings.ToUpper(strings.TrimSpace(s)); s {
	case "BUY", "SELL":
		return s
	default:
		return ""
	}
}
