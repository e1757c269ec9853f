package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagebound/pagebound/internal/domain"
)

// OrderService provides business logic for order lifecycle operations.
// Customer-facing operations scope by user ID; admin operations pass an
// empty user ID to skip the ownership check.
type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]domain.Order, int64, error)

	// CancelOrder cancels a pending or confirmed order and restores its
	// stock. Restores replay safely, so a retried cancellation never
	// double-credits stock.
	CancelOrder(ctx context.Context, userID, orderID, reason string) (*domain.Order, error)

	// MarkShipped records tracking details and moves the order to
	// shipped.
	MarkShipped(ctx context.Context, orderID string, tracking TrackingInfo) (*domain.Order, error)

	// UpdateStatus applies an admin status transition. Cancellation and
	// its stock restore go through CancelOrder instead.
	UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error)

	Stats(ctx context.Context, userID string) (*domain.OrderStats, error)
}

// TrackingInfo carries shipment details attached when an order ships.
type TrackingInfo struct {
	TrackingNumber    string
	TrackingURL       string
	EstimatedDelivery time.Time
}

type orderService struct {
	orders  domain.OrderStore
	catalog domain.CatalogStore
	logger  *slog.Logger
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(orders domain.OrderStore, catalog domain.CatalogStore, logger *slog.Logger) OrderService {
	return &orderService{
		orders:  orders,
		catalog: catalog,
		logger:  logger,
	}
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.orders.FindOrder(ctx, orderID, userID)
}

func (s *orderService) ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	return s.orders.ListOrders(ctx, userID, filter)
}

// CancelOrder cancels an order still in a cancellable state and restores
// stock for every line. Stock is restored first: each restore is keyed
// by (order, book) in the movement ledger, so if the sequence is
// interrupted and retried the replayed restores are no-ops and stock is
// credited exactly once.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID, reason string) (*domain.Order, error) {
	order, err := s.orders.FindOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if !domain.Cancellable(order.Status) {
		return nil, &domain.InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
	}

	for _, line := range order.Lines {
		m := domain.StockMovement{
			OrderID:   order.ID,
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			Direction: domain.MovementRestore,
			AppliedAt: time.Now(),
		}
		if err := s.catalog.ApplyStockMovement(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to restore stock for book %s: %w", line.BookID, err)
		}
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, orderID, domain.StatusUpdate{
		Status:             domain.OrderStatusCancelled,
		CancellationReason: reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info("order cancelled", "order_id", orderID, "order_number", updated.OrderNumber)
	return updated, nil
}

func (s *orderService) MarkShipped(ctx context.Context, orderID string, tracking TrackingInfo) (*domain.Order, error) {
	order, err := s.orders.FindOrder(ctx, orderID, "")
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, domain.OrderStatusShipped) {
		return nil, &domain.InvalidTransitionError{From: order.Status, To: domain.OrderStatusShipped}
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, orderID, domain.StatusUpdate{
		Status:            domain.OrderStatusShipped,
		TrackingNumber:    tracking.TrackingNumber,
		TrackingURL:       tracking.TrackingURL,
		EstimatedDelivery: tracking.EstimatedDelivery,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark order shipped: %w", err)
	}

	s.logger.Info("order shipped",
		"order_id", orderID, "tracking_number", tracking.TrackingNumber)
	return updated, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if status == domain.OrderStatusCancelled {
		return nil, domain.Invalid("order.update_status", "Use the cancellation endpoint to cancel an order")
	}

	order, err := s.orders.FindOrder(ctx, orderID, "")
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, &domain.InvalidTransitionError{From: order.Status, To: status}
	}

	return s.orders.UpdateOrderStatus(ctx, orderID, domain.StatusUpdate{Status: status})
}

func (s *orderService) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	return s.orders.OrderStats(ctx, userID)
}
