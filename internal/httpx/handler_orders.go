package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/karigari/order-engine/internal/httpx/middlewares"
	"github.com/karigari/order-engine/internal/order"
)

// CreateOrder builds an order from the requested items, reserving stock.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	slog.InfoContext(r.Context(), "creating order", "user_id", userID, "items", len(req.Items))

	ord, err := h.builder.Build(r.Context(), userID, req.toBuildRequest())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

// ListMyOrders pages through the caller's own orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	page, err := h.queries.ListByUser(r.Context(), userID, pageRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetOrder returns one order, scoped to its owner unless the caller is admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ord, err := h.queries.Get(ctx, chi.URLParam(r, "id"),
		middlewares.UserID(ctx), middlewares.IsAdmin(ctx))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

// CancelOrder cancels the caller's order and restores its stock.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CancelOrderRequest
	if r.Body != nil {
		// The body is optional; a bare cancel has no reason.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ord, err := h.machine.Cancel(ctx, chi.URLParam(r, "id"),
		middlewares.UserID(ctx), middlewares.IsAdmin(ctx), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

// AdminListOrders pages through all orders.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.queries.ListAll(r.Context(), pageRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AdminUpdateStatus advances an order along the status chain.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	ord, err := h.machine.Advance(r.Context(), chi.URLParam(r, "id"),
		order.Status(req.Status), req.Note, req.TrackingNumber)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}
