package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagebound/pagebound/internal/domain"
)

// BookHandler serves the public catalog read endpoints.
type BookHandler struct {
	catalog domain.CatalogStore
	logger  *slog.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(catalog domain.CatalogStore, logger *slog.Logger) *BookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookHandler{catalog: catalog, logger: logger}
}

// ListBooks handles GET /api/books
//
// Query parameters:
//   - category: exact category match
//   - min_price, max_price: price bounds in cents
//   - search: substring match on title, author and description
//   - sort: title, author, price, oldest (default newest first)
//   - page, limit: pagination
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	filter := domain.BookFilter{
		Category:      r.URL.Query().Get("category"),
		Search:        r.URL.Query().Get("search"),
		Sort:          r.URL.Query().Get("sort"),
		MinPriceCents: queryInt(r, "min_price", 0),
		MaxPriceCents: queryInt(r, "max_price", 0),
		Page:          queryInt(r, "page", 1),
		Limit:         queryInt(r, "limit", 0),
	}

	books, total, err := h.catalog.ListBooks(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list books", "error", err)
		ErrorResponse(w, r, err)
		return
	}

	type bookListing struct {
		domain.Book
		Availability string `json:"availability"`
	}
	listings := make([]bookListing, len(books))
	for i := range books {
		listings[i] = bookListing{Book: books[i], Availability: books[i].Availability()}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"books": listings,
		"total": total,
		"page":  filter.Page,
	})
}

// GetBook handles GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"book":         book,
		"availability": book.Availability(),
	})
}
