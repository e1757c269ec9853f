package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/pagebound/pagebound/internal/domain"
)

// mockCartStore implements domain.CartStore for testing
type mockCartStore struct {
	LoadCartFunc func(ctx context.Context, ownerKey string) (*domain.Cart, error)
	SaveCartFunc func(ctx context.Context, cart *domain.Cart) error
}

func (m *mockCartStore) LoadCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	if m.LoadCartFunc != nil {
		return m.LoadCartFunc(ctx, ownerKey)
	}
	return nil, domain.ErrCartNotFound
}

func (m *mockCartStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	if m.SaveCartFunc != nil {
		return m.SaveCartFunc(ctx, cart)
	}
	return nil
}

// mockCatalogStore implements domain.CatalogStore for testing
type mockCatalogStore struct {
	GetBookFunc              func(ctx context.Context, id string) (*domain.Book, error)
	ListBooksFunc            func(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int64, error)
	ApplyStockMovementFunc   func(ctx context.Context, m domain.StockMovement) error
	ReverseStockMovementFunc func(ctx context.Context, m domain.StockMovement) error
}

func (m *mockCatalogStore) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if m.GetBookFunc != nil {
		return m.GetBookFunc(ctx, id)
	}
	return nil, domain.ErrBookNotFound
}

func (m *mockCatalogStore) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int64, error) {
	if m.ListBooksFunc != nil {
		return m.ListBooksFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockCatalogStore) ApplyStockMovement(ctx context.Context, mv domain.StockMovement) error {
	if m.ApplyStockMovementFunc != nil {
		return m.ApplyStockMovementFunc(ctx, mv)
	}
	return nil
}

func (m *mockCatalogStore) ReverseStockMovement(ctx context.Context, mv domain.StockMovement) error {
	if m.ReverseStockMovementFunc != nil {
		return m.ReverseStockMovementFunc(ctx, mv)
	}
	return nil
}

// mockOrderStore implements domain.OrderStore for testing
type mockOrderStore struct {
	InsertOrderFunc       func(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindOrderFunc         func(ctx context.Context, id, userID string) (*domain.Order, error)
	ListOrdersFunc        func(ctx context.Context, userID string, filter domain.OrderFilter) ([]domain.Order, int64, error)
	UpdateOrderStatusFunc func(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Order, error)
	OrderStatsFunc        func(ctx context.Context, userID string) (*domain.OrderStats, error)
}

func (m *mockOrderStore) InsertOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if m.InsertOrderFunc != nil {
		return m.InsertOrderFunc(ctx, order)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOrderStore) FindOrder(ctx context.Context, id, userID string) (*domain.Order, error) {
	if m.FindOrderFunc != nil {
		return m.FindOrderFunc(ctx, id, userID)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderStore) ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, userID, filter)
	}
	return nil, 0, nil
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Order, error) {
	if m.UpdateOrderStatusFunc != nil {
		return m.UpdateOrderStatusFunc(ctx, id, update)
	}
	return nil, errors.New("not implemented")
}

func (m *mockOrderStore) OrderStats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	if m.OrderStatsFunc != nil {
		return m.OrderStatsFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

// testLogger discards all output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
