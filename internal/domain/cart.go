package domain

import (
	"context"
	"time"
)

// MaxLineQuantity caps how many copies of a single book one cart line
// may hold.
const MaxLineQuantity = 10

// CartTTL is how long an untouched cart survives. Expiry is enforced by
// the storage layer (TTL index), not by cart logic.
const CartTTL = 7 * 24 * time.Hour

var (
	ErrCartNotFound    = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 10"}
)

// CartLine is one (book, quantity) pair in a cart. A cart holds at most
// one line per book.
type CartLine struct {
	BookID   string    `bson:"book_id" json:"bookId"`
	Quantity int64     `bson:"quantity" json:"quantity"`
	AddedAt  time.Time `bson:"added_at" json:"addedAt"`
}

// Cart is the single mutable cart belonging to one owner key (a user ID
// or a guest session key). It is created lazily on first mutation and
// cleared, not deleted, on successful checkout.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerKey  string     `bson:"owner_key" json:"-"`
	Lines     []CartLine `bson:"lines" json:"lines"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// NewCart returns an empty cart for the given owner key.
func NewCart(ownerKey string) *Cart {
	now := time.Now()
	return &Cart{
		OwnerKey:  ownerKey,
		Lines:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Line returns the line for bookID, or nil if the cart has none.
func (c *Cart) Line(bookID string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].BookID == bookID {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddLine adds quantity copies of a book, folding into an existing line
// when present. The resulting quantity is capped at MaxLineQuantity.
// Quantity must be in [1, MaxLineQuantity].
func (c *Cart) AddLine(bookID string, quantity int64) error {
	if quantity < 1 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	if line := c.Line(bookID); line != nil {
		line.Quantity = minQty(line.Quantity+quantity, MaxLineQuantity)
	} else {
		c.Lines = append(c.Lines, CartLine{
			BookID:   bookID,
			Quantity: quantity,
			AddedAt:  time.Now(),
		})
	}

	c.UpdatedAt = time.Now()
	return nil
}

// SetLineQuantity sets the quantity for a book's line, capped at
// MaxLineQuantity. A quantity of zero or less removes the line; removal
// of an absent line is a no-op.
func (c *Cart) SetLineQuantity(bookID string, quantity int64) {
	if quantity <= 0 {
		c.RemoveLine(bookID)
		return
	}

	if line := c.Line(bookID); line != nil {
		line.Quantity = minQty(quantity, MaxLineQuantity)
		c.UpdatedAt = time.Now()
	}
}

// RemoveLine removes the line for bookID. Removing an absent line is a
// no-op.
func (c *Cart) RemoveLine(bookID string) {
	for i := range c.Lines {
		if c.Lines[i].BookID == bookID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = time.Now()
			return
		}
	}
}

// Clear empties the cart. Used after a successful checkout commit.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.UpdatedAt = time.Now()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int64 {
	var n int64
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

func minQty(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// CartItemView is a cart line joined with the live catalog record.
// Prices here are live estimates recomputed on every read, not the
// frozen prices an order snapshot carries.
type CartItemView struct {
	BookID         string `json:"bookId"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	LineTotalCents int64  `json:"lineTotalCents"`
	Availability   string `json:"availability"`
}

// CartView aggregates a cart with populated items and live totals.
type CartView struct {
	Cart            *Cart          `json:"cart"`
	Items           []CartItemView `json:"items"`
	TotalItems      int64          `json:"totalItems"`
	TotalPriceCents int64          `json:"totalPriceCents"`
}

// CartStore persists carts keyed by owner. Implementations provide
// per-document atomic writes; cross-user contention does not exist
// because a cart has exactly one owner, and same-owner races resolve
// last-write-wins.
type CartStore interface {
	// LoadCart returns the owner's cart, or ErrCartNotFound.
	LoadCart(ctx context.Context, ownerKey string) (*Cart, error)
	// SaveCart upserts the cart by owner key and refreshes its TTL.
	SaveCart(ctx context.Context, cart *Cart) error
}
