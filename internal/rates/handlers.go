package rates

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-aurum/internal/common"
)

// Source provides read/write access to the daily quote.
type Source interface {
	Current(ctx context.Context) (Quote, error)
	Set(ctx context.Context, q Quote) error
}

// Handler exposes the daily metal rate endpoints.
type Handler struct {
	Store Source
}

// Get handles GET /api/v1/rates.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates store not configured", nil)
		return
	}
	q, err := h.Store.Current(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "read rates", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Put handles PUT /api/v1/rates.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates store not configured", nil)
		return
	}
	var q Quote
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json payload", nil)
		return
	}
	if q.GoldPerGram < 0 || q.SilverPerGram < 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "rates must not be negative", nil)
		return
	}
	if err := h.Store.Set(r.Context(), q); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "store rates", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}
