// Package routes wires handlers and middleware onto the HTTP router.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagebound/pagebound/internal/handler"
	"github.com/pagebound/pagebound/internal/middleware"
)

// Deps carries everything the router needs.
type Deps struct {
	Books  *handler.BookHandler
	Cart   *handler.CartHandler
	Orders *handler.OrderHandler

	Logger  *slog.Logger
	Metrics *middleware.Metrics
}

// NewRouter builds the full route tree with the standard middleware
// chain (request ID, request logging, metrics).
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.WithRequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// catalog
		r.Get("/books", deps.Books.ListBooks)
		r.Get("/books/{id}", deps.Books.GetBook)

		// cart
		r.Get("/cart", deps.Cart.GetCart)
		r.Delete("/cart", deps.Cart.ClearCart)
		r.Get("/cart/count", deps.Cart.Count)
		r.Post("/cart/items", deps.Cart.AddItem)
		r.Put("/cart/items/{bookID}", deps.Cart.UpdateItem)
		r.Delete("/cart/items/{bookID}", deps.Cart.RemoveItem)
		r.Post("/cart/merge", deps.Cart.Merge)

		// checkout and orders
		r.Post("/orders", deps.Orders.CreateOrder)
		r.Get("/orders", deps.Orders.ListOrders)
		r.Get("/orders/stats", deps.Orders.Stats)
		r.Get("/orders/{id}", deps.Orders.GetOrder)
		r.Post("/orders/{id}/cancel", deps.Orders.CancelOrder)

		// admin fulfillment
		r.Put("/admin/orders/{id}/tracking", deps.Orders.UpdateTracking)
		r.Put("/admin/orders/{id}/status", deps.Orders.UpdateStatus)
	})

	return r
}
