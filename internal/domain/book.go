package domain

import (
	"context"
	"time"
)

// Book availability labels derived from the stock counter.
const (
	AvailabilityInStock    = "in-stock"
	AvailabilityLowStock   = "low-stock"
	AvailabilityOutOfStock = "out-of-stock"

	// LowStockThreshold is the stock level below which a book is flagged low.
	LowStockThreshold = 10
)

var (
	ErrBookNotFound = &Error{Code: ENOTFOUND, Message: "Book not found"}

	// ErrBookUnavailable covers books that exist but cannot be purchased
	// (deactivated rather than deleted).
	ErrBookUnavailable = &Error{Code: ENOTFOUND, Message: "Book not available"}
)

// Book is a catalog record. Stock is the count of sellable units and is
// never negative; a book with Active=false is not purchasable regardless
// of stock. Books are deactivated, never deleted.
type Book struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Author      string    `bson:"author" json:"author"`
	ISBN        string    `bson:"isbn,omitempty" json:"isbn,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	PriceCents  int64     `bson:"price_cents" json:"priceCents"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	ImageURL    string    `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	Stock       int64     `bson:"stock" json:"stock"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// Availability returns the stock label shown in the catalog.
func (b *Book) Availability() string {
	switch {
	case b.Stock == 0:
		return AvailabilityOutOfStock
	case b.Stock < LowStockThreshold:
		return AvailabilityLowStock
	default:
		return AvailabilityInStock
	}
}

// Purchasable reports whether the book can currently satisfy an order
// for the given quantity.
func (b *Book) Purchasable(quantity int64) bool {
	return b.Active && b.Stock >= quantity
}

// BookFilter narrows catalog listings.
type BookFilter struct {
	Category      string
	MinPriceCents int64
	MaxPriceCents int64
	Search        string
	Sort          string // title, author, price, newest, oldest
	Page          int64
	Limit         int64
}

// CatalogStore provides access to book records, including the two atomic
// stock primitives the checkout and cancellation paths depend on.
//
// ApplyStockMovement must be atomic and conditional: a "reserve" movement
// decrements stock only when enough remains and a movement for the same
// (orderID, bookID, direction) has not been applied before; a "restore"
// movement increments unconditionally, again at most once per order line.
// This keeps concurrent checkouts of a scarce book from driving stock
// negative and makes retries of a partially applied commit safe.
type CatalogStore interface {
	GetBook(ctx context.Context, id string) (*Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]Book, int64, error)
	ApplyStockMovement(ctx context.Context, m StockMovement) error
	ReverseStockMovement(ctx context.Context, m StockMovement) error
}

// Stock movement directions.
const (
	MovementReserve = "reserve" // checkout decrement
	MovementRestore = "restore" // cancellation increment
)

// ErrInsufficientStock is returned by ApplyStockMovement when the
// conditional decrement does not match (stock below requested quantity,
// or the book is missing/inactive).
var ErrInsufficientStock = &Error{Code: ECONFLICT, Message: "Insufficient stock"}

// StockMovement is one ledger entry adjusting a book's stock on behalf of
// an order. The store enforces uniqueness on (OrderID, BookID, Direction),
// so replaying a movement is a no-op rather than a double adjustment.
type StockMovement struct {
	OrderID   string    `bson:"order_id"`
	BookID    string    `bson:"book_id"`
	Quantity  int64     `bson:"quantity"`
	Direction string    `bson:"direction"`
	AppliedAt time.Time `bson:"applied_at"`
}
