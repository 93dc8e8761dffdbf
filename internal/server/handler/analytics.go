package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// AnalyticsService is what the analytics handler needs from the engine.
type AnalyticsService interface {
	PnLHistory(ctx context.Context, wallet string, g domain.Granularity) (domain.PnLHistory, error)
	TotalPnL(ctx context.Context, wallet string) (domain.TotalPnL, error)
	UnrealizedProfit(ctx context.Context, wallet string) (domain.UnrealizedProfit, error)
	SectorExposure(ctx context.Context, wallet string) (domain.SectorExposure, error)
	Value(ctx context.Context, wallet string) (domain.PortfolioValue, error)
	Positions(ctx context.Context, wallet string) ([]domain.Record, error)
	ClosedPositions(ctx context.Context, wallet string) ([]domain.Record, error)
}

// AnalyticsHandler serves the per-wallet report endpoints.
type AnalyticsHandler struct {
	svc    AnalyticsService
	logger *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger.With(slog.String("handler", "analytics"))}
}

// PnL returns the bucketed PnL history.
// GET /api/pnl?user=0x...&granularity=daily|monthly
func (h *AnalyticsHandler) PnL(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "pnl", err)
		return
	}
	g, err := domain.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		writeServiceError(w, r, h.logger, "pnl", err)
		return
	}

	out, err := h.svc.PnLHistory(r.Context(), user, g)
	if err != nil {
		writeServiceError(w, r, h.logger, "pnl", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// TotalPnL returns realized, unrealized and total PnL.
// GET /api/total-pnl?user=0x...
func (h *AnalyticsHandler) TotalPnL(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "total pnl", h.svc.TotalPnL)
}

// UnrealizedProfit returns mark-to-market PnL of open positions.
// GET /api/unrealized-profit?user=0x...
func (h *AnalyticsHandler) UnrealizedProfit(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "unrealized profit", h.svc.UnrealizedProfit)
}

// SectorExposure returns the ranked sector breakdown.
// GET /api/sector-exposure?user=0x...
func (h *AnalyticsHandler) SectorExposure(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "sector exposure", h.svc.SectorExposure)
}

// Value returns the venue's valuation of the wallet.
// GET /api/value?user=0x...
func (h *AnalyticsHandler) Value(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "value", h.svc.Value)
}

// Positions returns every open position record.
// GET /api/positions?user=0x...
func (h *AnalyticsHandler) Positions(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "positions", h.svc.Positions)
}

// ClosedPositions returns every closed position record.
// GET /api/closed-positions?user=0x...
func (h *AnalyticsHandler) ClosedPositions(w http.ResponseWriter, r *http.Request) {
	serveWallet(w, r, h.logger, "closed positions", h.svc.ClosedPositions)
}

func serveWallet[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, fn func(context.Context, string) (T, error)) {
	user, err := requireUser(r)
	if err != nil {
		writeServiceError(w, r, logger, op, err)
		return
	}
	out, err := fn(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
