package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pagebound/pagebound/internal/domain"
	"github.com/pagebound/pagebound/internal/service"
)

// OrderHandler serves checkout and order lifecycle endpoints. Checkout
// requires a signed-in user; guests merge their cart at login first.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type createOrderRequest struct {
	ShippingAddress domain.Address       `json:"shippingAddress" validate:"required"`
	BillingAddress  *domain.Address      `json:"billingAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod" validate:"required"`
	Notes           string               `json:"notes" validate:"max=500"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type trackingRequest struct {
	TrackingNumber    string    `json:"trackingNumber" validate:"required"`
	TrackingURL       string    `json:"trackingUrl" validate:"omitempty,url"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed processing shipped delivered refunded"`
}

// CreateOrder handles POST /api/orders, converting the user's cart into
// an order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to check out"))
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ErrorResponse(w, r, domain.Invalid("checkout.create", validationMessage(err)))
		return
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	order, err := h.checkout.CreateOrder(r.Context(), uid, service.CreateOrderParams{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		h.logger.Warn("checkout failed", "user_id", uid, "error", err)
		ErrorResponse(w, r, err)
		return
	}

	h.logger.Info("order created",
		"order_id", order.ID, "order_number", order.OrderNumber,
		"user_id", uid, "total_cents", order.Pricing.TotalCents)
	respondJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to view orders"))
		return
	}

	orders, total, err := h.orders.ListOrders(r.Context(), uid, domain.OrderFilter{
		Status: r.URL.Query().Get("status"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
	})
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to view orders"))
		return
	}

	order, err := h.orders.GetOrder(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to cancel orders"))
		return
	}

	var req cancelOrderRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			ErrorResponse(w, r, err)
			return
		}
	}

	order, err := h.orders.CancelOrder(r.Context(), uid, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// UpdateTracking handles PUT /api/admin/orders/{id}/tracking, attaching
// shipment details and marking the order shipped.
func (h *OrderHandler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ErrorResponse(w, r, domain.Invalid("order.tracking", validationMessage(err)))
		return
	}

	order, err := h.orders.MarkShipped(r.Context(), chi.URLParam(r, "id"), service.TrackingInfo{
		TrackingNumber:    req.TrackingNumber,
		TrackingURL:       req.TrackingURL,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		ErrorResponse(w, r, domain.Invalid("order.update_status", validationMessage(err)))
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Stats handles GET /api/orders/stats
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to view order stats"))
		return
	}

	stats, err := h.orders.Stats(r.Context(), uid)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// validationMessage flattens the first validator error into a short
// user-facing message.
func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return "Invalid field: " + fe.Field()
	}
	return "Invalid request"
}
