package invoice

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-aurum/internal/common"
)

// Reader is the query surface the history endpoints need.
type Reader interface {
	List(ctx context.Context, month string, limit, offset int) ([]Invoice, error)
	GetByNumber(ctx context.Context, number string) (Invoice, error)
}

// Handler exposes sales history endpoints.
type Handler struct {
	Store Reader
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	month := r.URL.Query().Get("month")
	invoices, err := h.Store.List(r.Context(), month, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list invoices", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       invoices,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(invoices)},
	})
}

// Get handles GET /api/v1/invoices/{number}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice store not configured", nil)
		return
	}
	inv, err := h.Store.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "load invoice", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}
