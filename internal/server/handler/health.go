package handler

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	serviceName    = "PolyPortfolio API"
	serviceVersion = "1.0.0"
)

// HealthHandler serves the liveness and index endpoints.
type HealthHandler struct {
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthCheck reports that the process is serving.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Root lists the available endpoints.
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"activity":          "/api/activity?user=<wallet_address>",
			"markets":           "/api/markets",
			"market":            "/api/markets/{market_id}",
			"positions":         "/api/positions?user=<wallet_address>",
			"closed_positions":  "/api/closed-positions?user=<wallet_address>",
			"value":             "/api/value?user=<wallet_address>",
			"pnl":               "/api/pnl?user=<wallet_address>&granularity=daily|monthly",
			"total_pnl":         "/api/total-pnl?user=<wallet_address>",
			"unrealized_profit": "/api/unrealized-profit?user=<wallet_address>",
			"sector_exposure":   "/api/sector-exposure?user=<wallet_address>",
			"metrics":           "/metrics",
		},
	})
}
