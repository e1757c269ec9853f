package service

import (
	"fmt"

	"github.com/pagebound/pagebound/internal/domain"
)

// Checkout errors
var (
	ErrEmptyCart               = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrPaymentMethodRequired   = domain.Errorf(domain.EINVALID, "", "Payment method is required")
	ErrShippingAddressRequired = domain.Errorf(domain.EINVALID, "", "Shipping address is required")
)

// InsufficientStockError reports a checkout line the catalog cannot
// satisfy. Title and Available feed the customer-facing message so the
// shopper knows which book to fix.
type InsufficientStockError struct {
	Title     string
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %q. Only %d available", e.Title, e.Available)
}

// BookUnavailableError reports a cart line whose book has been removed
// from sale since it was added.
type BookUnavailableError struct {
	Title  string
	BookID string
}

func (e *BookUnavailableError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%q is no longer available", e.Title)
	}
	return fmt.Sprintf("Book %s is no longer available", e.BookID)
}
