package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagebound/pagebound/internal/cache"
	"github.com/pagebound/pagebound/internal/domain"
)

// CheckoutService converts a cart into an order.
type CheckoutService interface {
	// CreateOrder runs the full checkout flow for the user's cart
	// (validate, price, snapshot, reserve stock, clear cart).
	CreateOrder(ctx context.Context, userID string, params CreateOrderParams) (*domain.Order, error)
}

// CreateOrderParams carries the checkout form data. Field-level
// validation happens at the HTTP boundary.
type CreateOrderParams struct {
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethod   domain.PaymentMethod
	Notes           string
}

type checkoutService struct {
	carts   domain.CartStore
	catalog domain.CatalogStore
	orders  domain.OrderStore
	cache   cache.CartCache
	logger  *slog.Logger
}

// NewCheckoutService creates a new CheckoutService instance. The cache
// may be nil.
func NewCheckoutService(carts domain.CartStore, catalog domain.CatalogStore, orders domain.OrderStore, cartCache cache.CartCache, logger *slog.Logger) CheckoutService {
	return &checkoutService{
		carts:   carts,
		catalog: catalog,
		orders:  orders,
		cache:   cartCache,
		logger:  logger,
	}
}

// CreateOrder runs the checkout flow:
//
//  1. Load the cart; an empty or missing cart aborts before any write.
//  2. Re-read every book and verify it is active with enough stock.
//     The first failing line aborts the whole checkout and names the
//     book so the shopper can fix it.
//  3. Snapshot the lines at current catalog prices and compute the
//     frozen pricing breakdown.
//  4. Insert the order in status pending.
//  5. Reserve stock per line through the movement ledger. A failure
//     here reverses the reservations already applied, cancels the
//     order, and reports the offending book; net stock is unchanged.
//  6. Clear the cart. A failure at this point is logged, not returned;
//     the order stands and the leftover cart is harmless.
//
// The stock checks in step 2 are advisory; step 5's conditional
// decrement is what actually prevents overselling under concurrency.
func (s *checkoutService) CreateOrder(ctx context.Context, userID string, params CreateOrderParams) (*domain.Order, error) {
	if params.PaymentMethod.Type == "" {
		return nil, ErrPaymentMethodRequired
	}
	if params.ShippingAddress.Street == "" {
		return nil, ErrShippingAddressRequired
	}

	cart, err := s.carts.LoadCart(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	var subtotalCents int64
	for _, line := range cart.Lines {
		book, err := s.catalog.GetBook(ctx, line.BookID)
		if err != nil {
			if errors.Is(err, domain.ErrBookNotFound) {
				return nil, &BookUnavailableError{BookID: line.BookID}
			}
			return nil, fmt.Errorf("failed to load book %s: %w", line.BookID, err)
		}
		if !book.Active {
			return nil, &BookUnavailableError{Title: book.Title, BookID: book.ID}
		}
		if book.Stock < line.Quantity {
			return nil, &InsufficientStockError{Title: book.Title, Available: book.Stock}
		}

		lines = append(lines, domain.OrderLine{
			BookID:         book.ID,
			Title:          book.Title,
			Author:         book.Author,
			UnitPriceCents: book.PriceCents,
			Quantity:       line.Quantity,
			ImageURL:       book.ImageURL,
		})
		subtotalCents += book.PriceCents * line.Quantity
	}

	orderNumber, err := generateOrderNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}

	order := &domain.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Lines:           lines,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
		PaymentMethod:   params.PaymentMethod,
		Pricing:         domain.ComputePricing(subtotalCents),
		Status:          domain.OrderStatusPending,
		Notes:           params.Notes,
	}

	order, err = s.orders.InsertOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.reserveStock(ctx, order); err != nil {
		return nil, err
	}

	cart.Clear()
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Warn("failed to clear cart after checkout",
			"order_id", order.ID, "user_id", userID, "error", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, userID); err != nil {
			s.logger.Warn("cart cache invalidation failed", "user_id", userID, "error", err)
		}
	}

	return order, nil
}

// reserveStock decrements stock for every order line through the
// movement ledger. On failure it reverses the movements already applied
// and cancels the order, leaving net stock unchanged.
func (s *checkoutService) reserveStock(ctx context.Context, order *domain.Order) error {
	applied := make([]domain.StockMovement, 0, len(order.Lines))

	for _, line := range order.Lines {
		m := domain.StockMovement{
			OrderID:   order.ID,
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			Direction: domain.MovementReserve,
			AppliedAt: time.Now(),
		}
		if err := s.catalog.ApplyStockMovement(ctx, m); err != nil {
			s.compensate(ctx, order, applied, line.Title, err)
			return s.stockError(ctx, line, err)
		}
		applied = append(applied, m)
	}

	return nil
}

// compensate rolls back a partially reserved checkout: already applied
// movements are reversed and the order is marked cancelled.
func (s *checkoutService) compensate(ctx context.Context, order *domain.Order, applied []domain.StockMovement, failedTitle string, cause error) {
	for _, m := range applied {
		if err := s.catalog.ReverseStockMovement(ctx, m); err != nil {
			s.logger.Error("failed to reverse stock movement during checkout rollback",
				"order_id", order.ID, "book_id", m.BookID, "error", err)
		}
	}

	_, err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.StatusUpdate{
		Status:             domain.OrderStatusCancelled,
		CancellationReason: fmt.Sprintf("checkout failed: %v", cause),
	})
	if err != nil {
		s.logger.Error("failed to cancel order during checkout rollback",
			"order_id", order.ID, "error", err)
	}

	s.logger.Info("checkout rolled back",
		"order_id", order.ID, "failed_title", failedTitle, "cause", cause)
}

// stockError translates a ledger failure into the customer-facing error
// for the offending line, re-reading the book so the message carries the
// stock that actually remains.
func (s *checkoutService) stockError(ctx context.Context, line domain.OrderLine, err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		var available int64
		if book, readErr := s.catalog.GetBook(ctx, line.BookID); readErr == nil {
			available = book.Stock
		}
		return &InsufficientStockError{Title: line.Title, Available: available}
	case errors.Is(err, domain.ErrBookNotFound), errors.Is(err, domain.ErrBookUnavailable):
		return &BookUnavailableError{Title: line.Title, BookID: line.BookID}
	default:
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateOrderNumber produces a customer-facing order reference.
// Format: ORD-{date}-{random}, e.g. ORD-20250129-A3K9. Uniqueness is
// enforced by the order store's index; a collision surfaces as an
// insert error.
func generateOrderNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), buf), nil
}
