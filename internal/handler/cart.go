package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagebound/pagebound/internal/domain"
	"github.com/pagebound/pagebound/internal/service"
)

// CartHandler serves the cart endpoints. Both signed-in users and
// guests get a cart; the owner key distinguishes them.
type CartHandler struct {
	carts  service.CartService
	logger *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts service.CartService, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{carts: carts, logger: logger}
}

type addItemRequest struct {
	BookID   string `json:"bookId"`
	Quantity int64  `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

type mergeCartRequest struct {
	GuestKey string `json:"guestKey"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing user or session identity"))
		return
	}

	view, err := h.carts.GetCart(r.Context(), owner)
	if err != nil {
		h.logger.Error("failed to load cart", "owner_key", owner, "error", err)
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing user or session identity"))
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if req.BookID == "" {
		ErrorResponse(w, r, domain.Invalid("cart.add", "bookId is required"))
		return
	}

	view, err := h.carts.AddItem(r.Context(), owner, req.BookID, req.Quantity)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

// UpdateItem handles PUT /api/cart/items/{bookID}. A quantity of zero
// removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing user or session identity"))
		return
	}

	var req updateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	view, err := h.carts.UpdateItemQuantity(r.Context(), owner, chi.URLParam(r, "bookID"), req.Quantity)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/cart/items/{bookID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing user or session identity"))
		return
	}

	view, err := h.carts.RemoveItem(r.Context(), owner, chi.URLParam(r, "bookID"))
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Missing user or session identity"))
		return
	}

	if err := h.carts.ClearCart(r.Context(), owner); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

// Count handles GET /api/cart/count, used by the header badge.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	owner := ownerKey(r)
	if owner == "" {
		respondJSON(w, http.StatusOK, map[string]int64{"count": 0})
		return
	}

	count, err := h.carts.CartCount(r.Context(), owner)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// Merge handles POST /api/cart/merge, folding a guest cart into the
// signed-in user's cart after login.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to merge carts"))
		return
	}

	var req mergeCartRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if req.GuestKey == "" {
		ErrorResponse(w, r, domain.Invalid("cart.merge", "guestKey is required"))
		return
	}

	view, err := h.carts.MergeGuestCart(r.Context(), req.GuestKey, uid)
	if err != nil {
		h.logger.Error("failed to merge guest cart", "user_id", uid, "error", err)
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
