package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/karigari/order-engine/internal/httpx/middlewares"
)

// GetCart returns the cart joined with live product data.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	view, err := h.carts.Read(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddToCart merges the requested quantity into the user's cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "productId is required")
		return
	}

	if err := h.carts.Add(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := h.carts.Read(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateCartItem overwrites a line's quantity; zero removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())
	productID := chi.URLParam(r, "productID")

	var req UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), userID, productID, *req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}

	view, err := h.carts.Read(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveCartItem deletes a line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.carts.Remove(r.Context(), userID, productID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCart empties the cart unconditionally.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := middlewares.UserID(r.Context())

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
