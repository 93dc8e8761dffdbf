package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

const maxLimit = 1000

// errorResponse is the JSON error body. StatusCode carries the upstream HTTP
// status when one is known and is null otherwise.
type errorResponse struct {
	Error      string `json:"error"`
	StatusCode *int   `json:"statusCode"`
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error","statusCode":500}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError sends a JSON error whose statusCode equals the response status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, StatusCode: &status})
}

// writeServiceError maps err to a response status and logs it. Request
// validation errors are 400, upstream failures keep the upstream status, and
// everything else is 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if code := domain.StatusCode(err); code != 0 {
		resp.StatusCode = &code
	} else if status < http.StatusInternalServerError {
		resp.StatusCode = &status
	}

	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, "handler: "+op+" failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidWallet) || errors.Is(err, domain.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if code := domain.StatusCode(err); code >= 400 && code <= 599 {
		return code
	}
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// requireUser returns the trimmed "user" query parameter.
func requireUser(r *http.Request) (string, error) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		return "", fmt.Errorf("%w: missing required query parameter \"user\"", domain.ErrInvalidRequest)
	}
	return user, nil
}

// parsePage reads limit (1..1000, default def) and offset (>= 0, default 0).
// Out-of-range values are rejected rather than clamped.
func parsePage(r *http.Request, def int) (limit, offset int, err error) {
	q := r.URL.Query()

	limit = def
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 || n > maxLimit {
			return 0, 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", domain.ErrInvalidRequest, maxLimit)
		}
		limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return 0, 0, fmt.Errorf("%w: offset must be a non-negative integer", domain.ErrInvalidRequest)
		}
		offset = n
	}
	return limit, offset, nil
}

// parseOptionalBool returns nil when key is absent.
func parseOptionalBool(r *http.Request, key string) (*bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidRequest, key)
	}
	return &b, nil
}
