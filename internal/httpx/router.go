package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/karigari/order-engine/internal/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Identity)

	r.Route("/cart", func(r chi.Router) {
		r.Use(middlewares.RequireUser)
		r.Get("/", handler.GetCart)
		r.Post("/add", handler.AddToCart)
		r.Patch("/item/{productID}", handler.UpdateCartItem)
		r.Delete("/item/{productID}", handler.RemoveCartItem)
		r.Delete("/clear", handler.ClearCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireUser)
			r.Post("/", handler.CreateOrder)
			r.Get("/my-orders", handler.ListMyOrders)
			r.Get("/{id}", handler.GetOrder)
			r.Patch("/{id}/cancel", handler.CancelOrder)
		})
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireAdmin)
			r.Get("/admin/all", handler.AdminListOrders)
			r.Patch("/{id}/status", handler.AdminUpdateStatus)
		})
	})

	return r
}
