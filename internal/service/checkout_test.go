package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebound/pagebound/internal/domain"
)

func checkoutParams() CreateOrderParams {
	return CreateOrderParams{
		ShippingAddress: domain.Address{
			FullName: "Ada Lovelace",
			Street:   "12 Analytical Way",
			City:     "London",
			State:    "LDN",
			ZipCode:  "10001",
			Phone:    "555-0100",
		},
		BillingAddress: domain.Address{
			FullName: "Ada Lovelace",
			Street:   "12 Analytical Way",
			City:     "London",
			State:    "LDN",
			ZipCode:  "10001",
			Phone:    "555-0100",
		},
		PaymentMethod: domain.PaymentMethod{Type: "card", CardLast4: "4242"},
	}
}

// checkoutFixture wires a checkout service around in-memory state so
// tests can assert on stock and persistence side effects.
type checkoutFixture struct {
	svc      CheckoutService
	cart     *domain.Cart
	books    map[string]*domain.Book
	inserted []*domain.Order
	statuses []domain.StatusUpdate
	saved    []*domain.Cart
	reserves []domain.StockMovement
	reversed []domain.StockMovement

	// failReserveFor makes the reserve of one book fail as if another
	// shopper took the stock between precheck and reserve.
	failReserveFor string
}

func newCheckoutFixture(t *testing.T, cart *domain.Cart, books ...*domain.Book) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{cart: cart, books: map[string]*domain.Book{}}
	for _, b := range books {
		f.books[b.ID] = b
	}

	carts := &mockCartStore{
		LoadCartFunc: func(ctx context.Context, ownerKey string) (*domain.Cart, error) {
			if f.cart == nil {
				return nil, domain.ErrCartNotFound
			}
			return f.cart, nil
		},
		SaveCartFunc: func(ctx context.Context, c *domain.Cart) error {
			f.saved = append(f.saved, c)
			return nil
		},
	}

	catalog := &mockCatalogStore{
		GetBookFunc: func(ctx context.Context, id string) (*domain.Book, error) {
			if b, ok := f.books[id]; ok {
				return b, nil
			}
			return nil, domain.ErrBookNotFound
		},
		ApplyStockMovementFunc: func(ctx context.Context, m domain.StockMovement) error {
			if m.Direction == domain.MovementReserve && m.BookID == f.failReserveFor {
				return domain.ErrInsufficientStock
			}
			b, ok := f.books[m.BookID]
			if !ok {
				return domain.ErrBookNotFound
			}
			if m.Direction == domain.MovementReserve {
				if b.Stock < m.Quantity {
					return domain.ErrInsufficientStock
				}
				b.Stock -= m.Quantity
			} else {
				b.Stock += m.Quantity
			}
			f.reserves = append(f.reserves, m)
			return nil
		},
		ReverseStockMovementFunc: func(ctx context.Context, m domain.StockMovement) error {
			b := f.books[m.BookID]
			if m.Direction == domain.MovementReserve {
				b.Stock += m.Quantity
			} else {
				b.Stock -= m.Quantity
			}
			f.reversed = append(f.reversed, m)
			return nil
		},
	}

	orders := &mockOrderStore{
		InsertOrderFunc: func(ctx context.Context, order *domain.Order) (*domain.Order, error) {
			order.ID = "order-1"
			f.inserted = append(f.inserted, order)
			return order, nil
		},
		UpdateOrderStatusFunc: func(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Order, error) {
			f.statuses = append(f.statuses, update)
			return &domain.Order{ID: id, Status: update.Status}, nil
		},
	}

	f.svc = NewCheckoutService(carts, catalog, orders, nil, testLogger())
	return f
}

func TestCreateOrder_Success(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 2))
	require.NoError(t, cart.AddLine(testBookID2, 2))

	f := newCheckoutFixture(t, cart,
		testBook(testBookID, 2500, 10),
		testBook(testBookID2, 1000, 10),
	)

	order, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())
	require.NoError(t, err)

	// 2x$25 + 2x$10 = $70 subtotal, free shipping over $50
	assert.Equal(t, int64(7000), order.Pricing.SubtotalCents)
	assert.Equal(t, int64(560), order.Pricing.TaxCents)
	assert.Equal(t, int64(0), order.Pricing.ShippingCents)
	assert.Equal(t, int64(7560), order.Pricing.TotalCents)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(2500), order.Lines[0].UnitPriceCents)

	// stock decremented for both lines
	assert.Equal(t, int64(8), f.books[testBookID].Stock)
	assert.Equal(t, int64(8), f.books[testBookID2].Stock)
	assert.Len(t, f.reserves, 2)

	// cart cleared and persisted
	require.Len(t, f.saved, 1)
	assert.True(t, f.saved[0].IsEmpty())
}

func TestCreateOrder_FlatShippingUnderThreshold(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 2))

	f := newCheckoutFixture(t, cart, testBook(testBookID, 1000, 10))

	order, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())
	require.NoError(t, err)

	assert.Equal(t, int64(2000), order.Pricing.SubtotalCents)
	assert.Equal(t, int64(160), order.Pricing.TaxCents)
	assert.Equal(t, int64(999), order.Pricing.ShippingCents)
	assert.Equal(t, int64(3159), order.Pricing.TotalCents)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, domain.NewCart(testOwner))

	_, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.inserted)
	assert.Empty(t, f.reserves)
	assert.Empty(t, f.saved)
}

func TestCreateOrder_MissingCart(t *testing.T) {
	f := newCheckoutFixture(t, nil)

	_, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrder_PaymentMethodRequired(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 1))
	f := newCheckoutFixture(t, cart, testBook(testBookID, 1000, 10))

	params := checkoutParams()
	params.PaymentMethod = domain.PaymentMethod{}

	_, err := f.svc.CreateOrder(context.Background(), testOwner, params)
	assert.ErrorIs(t, err, ErrPaymentMethodRequired)
	assert.Empty(t, f.inserted)
}

func TestCreateOrder_ShippingAddressRequired(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 1))
	f := newCheckoutFixture(t, cart, testBook(testBookID, 1000, 10))

	params := checkoutParams()
	params.ShippingAddress = domain.Address{}

	_, err := f.svc.CreateOrder(context.Background(), testOwner, params)
	assert.ErrorIs(t, err, ErrShippingAddressRequired)
}

func TestCreateOrder_InsufficientStockPrecheck(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 5))

	f := newCheckoutFixture(t, cart, testBook(testBookID, 1000, 2))

	_, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "The Go Programming Language", stockErr.Title)
	assert.Equal(t, int64(2), stockErr.Available)

	// nothing was written
	assert.Empty(t, f.inserted)
	assert.Empty(t, f.reserves)
	assert.Equal(t, int64(2), f.books[testBookID].Stock)
}

func TestCreateOrder_InactiveBook(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 1))

	inactive := testBook(testBookID, 1000, 10)
	inactive.Active = false
	f := newCheckoutFixture(t, cart, inactive)

	_, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())

	var unavailableErr *BookUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Empty(t, f.inserted)
}

func TestCreateOrder_ReserveFailureRollsBack(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 2))
	require.NoError(t, cart.AddLine(testBookID2, 3))

	// second book passes the precheck but loses the race at reserve time
	f := newCheckoutFixture(t, cart,
		testBook(testBookID, 2500, 10),
		testBook(testBookID2, 1000, 3),
	)
	f.failReserveFor = testBookID2

	_, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// first line's reservation was reversed, net stock unchanged
	assert.Equal(t, int64(10), f.books[testBookID].Stock)
	assert.Equal(t, int64(3), f.books[testBookID2].Stock)
	require.Len(t, f.reversed, 1)
	assert.Equal(t, testBookID, f.reversed[0].BookID)

	// order was cancelled, cart untouched
	require.Len(t, f.statuses, 1)
	assert.Equal(t, domain.OrderStatusCancelled, f.statuses[0].Status)
	assert.Empty(t, f.saved)
	assert.False(t, f.cart.IsEmpty())
}

func TestCreateOrder_SnapshotsCurrentPrices(t *testing.T) {
	cart := domain.NewCart(testOwner)
	require.NoError(t, cart.AddLine(testBookID, 1))

	book := testBook(testBookID, 1999, 10)
	f := newCheckoutFixture(t, cart, book)

	order, err := f.svc.CreateOrder(context.Background(), testOwner, checkoutParams())
	require.NoError(t, err)

	// later catalog edits must not alter the snapshot
	book.PriceCents = 2999
	assert.Equal(t, int64(1999), order.Lines[0].UnitPriceCents)
	assert.Equal(t, "The Go Programming Language", order.Lines[0].Title)
}

func TestGenerateOrderNumber_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-[A-HJ-NP-Z2-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n, err := generateOrderNumber()
		require.NoError(t, err)
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	// 32^4 combinations make 50 draws colliding vanishingly unlikely
	assert.Greater(t, len(seen), 45)
}
