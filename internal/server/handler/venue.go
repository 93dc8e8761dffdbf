package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// ActivityReader reads one page of wallet activity.
type ActivityReader interface {
	Activity(ctx context.Context, user string, limit, offset int) ([]domain.Record, error)
}

// MarketReader reads raw Gamma market documents.
type MarketReader interface {
	GetMarkets(ctx context.Context, limit, offset int, active *bool) (json.RawMessage, error)
	GetMarket(ctx context.Context, id string) (json.RawMessage, error)
}

// VenueHandler proxies read-only venue endpoints with request validation.
type VenueHandler struct {
	activity ActivityReader
	markets  MarketReader
	logger   *slog.Logger
}

// NewVenueHandler creates a VenueHandler.
func NewVenueHandler(activity ActivityReader, markets MarketReader, logger *slog.Logger) *VenueHandler {
	return &VenueHandler{
		activity: activity,
		markets:  markets,
		logger:   logger.With(slog.String("handler", "venue")),
	}
}

// Activity returns one page of wallet activity.
// GET /api/activity?user=0x...&limit=500&offset=0
func (h *VenueHandler) Activity(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "activity", err)
		return
	}
	limit, offset, err := parsePage(r, 500)
	if err != nil {
		writeServiceError(w, r, h.logger, "activity", err)
		return
	}

	recs, err := h.activity.Activity(r.Context(), user, limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, "activity", err)
		return
	}
	if recs == nil {
		recs = []domain.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// ListMarkets returns a page of Gamma markets.
// GET /api/markets?limit=100&offset=0&active=true
func (h *VenueHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r, 100)
	if err != nil {
		writeServiceError(w, r, h.logger, "list markets", err)
		return
	}
	active, err := parseOptionalBool(r, "active")
	if err != nil {
		writeServiceError(w, r, h.logger, "list markets", err)
		return
	}

	raw, err := h.markets.GetMarkets(r.Context(), limit, offset, active)
	if err != nil {
		writeServiceError(w, r, h.logger, "list markets", err)
		return
	}
	writeRaw(w, raw)
}

// GetMarket returns a single Gamma market.
// GET /api/markets/{id}
func (h *VenueHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	raw, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get market", err)
		return
	}
	writeRaw(w, raw)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
