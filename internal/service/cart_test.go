package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebound/pagebound/internal/domain"
)

const (
	testBookID  = "64b000000000000000000001"
	testBookID2 = "64b000000000000000000002"
	testOwner   = "user-1"
)

func testBook(id string, priceCents, stock int64) *domain.Book {
	return &domain.Book{
		ID:         id,
		Title:      "The Go Programming Language",
		Author:     "Donovan & Kernighan",
		PriceCents: priceCents,
		Stock:      stock,
		Active:     true,
	}
}

func catalogWith(books ...*domain.Book) *mockCatalogStore {
	index := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		index[b.ID] = b
	}
	return &mockCatalogStore{
		GetBookFunc: func(ctx context.Context, id string) (*domain.Book, error) {
			if b, ok := index[id]; ok {
				return b, nil
			}
			return nil, domain.ErrBookNotFound
		},
	}
}

func TestAddItem_NewLine(t *testing.T) {
	var saved *domain.Cart
	carts := &mockCartStore{
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			saved = cart
			return nil
		},
	}
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	view, err := svc.AddItem(context.Background(), testOwner, testBookID, 2)
	require.NoError(t, err)

	require.NotNil(t, saved)
	require.Len(t, saved.Lines, 1)
	assert.Equal(t, int64(2), saved.Lines[0].Quantity)

	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.TotalItems)
	assert.Equal(t, int64(5000), view.TotalPriceCents)
}

func TestAddItem_FoldsIntoExistingLineAndCaps(t *testing.T) {
	existing := domain.NewCart(testOwner)
	require.NoError(t, existing.AddLine(testBookID, 8))

	var saved *domain.Cart
	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			return existing, nil
		},
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			saved = cart
			return nil
		},
	}
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 5)
	require.NoError(t, err)

	require.NotNil(t, saved)
	require.Len(t, saved.Lines, 1)
	assert.Equal(t, int64(domain.MaxLineQuantity), saved.Lines[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	for _, qty := range []int64{0, -1, 11} {
		_, err := svc.AddItem(context.Background(), testOwner, testBookID, qty)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "quantity %d", qty)
	}
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(testBook(testBookID, 2500, 1)), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 3)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.Available)
	assert.Contains(t, stockErr.Error(), "The Go Programming Language")
}

func TestAddItem_InactiveBook(t *testing.T) {
	book := testBook(testBookID, 2500, 20)
	book.Active = false
	svc := NewCartService(&mockCartStore{}, catalogWith(book), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 1)

	var unavailableErr *BookUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
}

func TestAddItem_BookNotFound(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 1)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestUpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 3))

	var saved *domain.Cart
	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			return cart, nil
		},
		SaveCartFunc: func(ctx context.Context, c *domain.Cart) error {
			saved = c
			return nil
		},
	}
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	view, err := svc.UpdateItemQuantity(context.Background(), testOwner, testBookID, 0)
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Empty(t, saved.Lines)
	assert.Empty(t, view.Items)
}

func TestUpdateItemQuantity_CapsAtMax(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	_, err := svc.UpdateItemQuantity(context.Background(), testOwner, testBookID, 11)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestRemoveItem_AbsentLineIsNoop(t *testing.T) {
	saveCalls := 0
	carts := &mockCartStore{
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			saveCalls++
			return nil
		},
	}
	svc := NewCartService(carts, catalogWith(), nil, testLogger())

	view, err := svc.RemoveItem(context.Background(), testOwner, testBookID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, saveCalls)
}

func TestGetCart_MissingCartRendersEmpty(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(), nil, testLogger())

	view, err := svc.GetCart(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, int64(0), view.TotalItems)
	assert.Equal(t, int64(0), view.TotalPriceCents)
}

func TestGetCart_OmitsVanishedBooks(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 2))
	require.NoError(t, cart.AddLine(testBookID2, 1))

	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			return cart, nil
		},
	}
	// only the second book remains in the catalog
	svc := NewCartService(carts, catalogWith(testBook(testBookID2, 1500, 5)), nil, testLogger())

	view, err := svc.GetCart(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, testBookID2, view.Items[0].BookID)
	assert.Equal(t, int64(1500), view.TotalPriceCents)
}

func TestCartCount(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 2))
	require.NoError(t, cart.AddLine(testBookID2, 3))

	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			return cart, nil
		},
	}
	svc := NewCartService(carts, catalogWith(), nil, testLogger())

	count, err := svc.CartCount(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestMergeGuestCart_FoldsAndSkips(t *testing.T) {
	guest := domain.NewCart("guest-1")
	require.NoError(t, guest.AddLine(testBookID, 4))  // folds into existing line
	require.NoError(t, guest.AddLine(testBookID2, 2)) // short stock, skipped

	user := domain.NewCart(testOwner)
	require.NoError(t, user.AddLine(testBookID, 8))

	savedByOwner := map[string]*domain.Cart{}
	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			switch ownerKey {
			case "guest-1":
				return guest, nil
			case testOwner:
				return user, nil
			}
			return nil, domain.ErrCartNotFound
		},
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			savedByOwner[cart.OwnerKey] = cart
			return nil
		},
	}
	scarce := testBook(testBookID2, 1500, 1)
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20), scarce), nil, testLogger())

	view, err := svc.MergeGuestCart(context.Background(), "guest-1", testOwner)
	require.NoError(t, err)

	merged := savedByOwner[testOwner]
	require.NotNil(t, merged)
	require.Len(t, merged.Lines, 1)
	assert.Equal(t, int64(domain.MaxLineQuantity), merged.Lines[0].Quantity)

	clearedGuest := savedByOwner["guest-1"]
	require.NotNil(t, clearedGuest)
	assert.True(t, clearedGuest.IsEmpty())

	assert.Equal(t, int64(domain.MaxLineQuantity), view.TotalItems)
}

func TestMergeGuestCart_NoGuestCart(t *testing.T) {
	svc := NewCartService(&mockCartStore{}, catalogWith(), nil, testLogger())

	view, err := svc.MergeGuestCart(context.Background(), "guest-1", testOwner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestSave_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("mongo down")
	carts := &mockCartStore{
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			return boom
		},
	}
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 1)
	assert.ErrorIs(t, err, boom)
}

func TestAddItem_RefreshesUpdatedAt(t *testing.T) {
	stale := domain.NewCart(testOwner)
	require.NoError(t, stale.AddLine(testBookID, 1))
	stale.UpdatedAt = time.Now().Add(-time.Hour)

	var saved *domain.Cart
	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			return stale, nil
		},
		SaveCartFunc: func(ctx context.Context, cart *domain.Cart) error {
			saved = cart
			return nil
		},
	}
	svc := NewCartService(carts, catalogWith(testBook(testBookID, 2500, 20)), nil, testLogger())

	_, err := svc.AddItem(context.Background(), testOwner, testBookID, 1)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.WithinDuration(t, time.Now(), saved.UpdatedAt, time.Minute)
}
