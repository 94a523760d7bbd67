// Package httpx exposes the engine's REST surface on chi.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/karigari/order-engine/internal/cart"
	"github.com/karigari/order-engine/internal/catalog"
	"github.com/karigari/order-engine/internal/order"
)

// Handler handles the cart and order endpoints.
type Handler struct {
	carts   *cart.Service
	builder *order.Builder
	machine *order.Machine
	queries *order.QueryService
}

func NewHandler(carts *cart.Service, builder *order.Builder, machine *order.Machine, queries *order.QueryService) *Handler {
	return &Handler{carts: carts, builder: builder, machine: machine, queries: queries}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// writeDomainError maps the domain error taxonomy onto status codes. All the
// engine's own error types are recoverable 4xx; anything unknown is a store
// failure and reads as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *catalog.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "insufficient_stock",
			Message:   insufficient.Error(),
			Available: &insufficient.Available,
		})
		return
	}

	var invalid *order.InvalidTransitionError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, "invalid_transition", invalid.Error())
		return
	}

	var validation *order.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, "validation_error", validation.Error())
		return
	}

	switch {
	case errors.Is(err, catalog.ErrProductUnavailable):
		writeError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, order.ErrProductsUnavailable):
		writeError(w, http.StatusBadRequest, "products_unavailable", err.Error())
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, cart.ErrQuantityCapExceeded),
		errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func pageRequest(r *http.Request) order.PageRequest {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	return order.PageRequest{
		Page:   page,
		Limit:  limit,
		SortBy: q.Get("sortBy"),
		Desc:   q.Get("order") != "asc",
	}
}
