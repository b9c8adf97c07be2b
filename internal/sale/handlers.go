package sale

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/common"
)

// SessionReader loads the session being committed.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (cart.Session, error)
}

// Handler exposes the commit endpoint.
type Handler struct {
	Sessions SessionReader
	Svc      *Service
}

// Commit handles POST /api/v1/sales/commit. The session to commit is
// identified by the session header, same as the cart endpoints.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale service not configured", nil)
		return
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok || sessionID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing session id", nil)
		return
	}
	session, err := h.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load session", nil)
		return
	}
	result, err := h.Svc.Commit(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var commitErr *CommitError
	if !errors.As(err, &commitErr) {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale commit failed", nil)
		return
	}
	details := map[string]any{"step": commitErr.Step.String()}
	if commitErr.Reconcile {
		details["reconcileRequired"] = true
		details["invoiceNumber"] = commitErr.InvoiceNumber
	}
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", details)
	case isValidation(err):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", commitErr.Err.Error(), details)
	case errors.Is(err, catalog.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", commitErr.Err.Error(), details)
	case commitErr.Reconcile:
		common.JSONError(w, http.StatusInternalServerError, "RECONCILE_REQUIRED",
			"sale partially committed; manual reconciliation required", details)
	default:
		common.JSONError(w, http.StatusServiceUnavailable, "COMMIT_FAILED", "sale commit failed", details)
	}
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
