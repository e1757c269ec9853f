package domain

import (
	"context"
	"fmt"
	"time"
)

// Order statuses. The lifecycle moves forward through pending, confirmed,
// processing, shipped, delivered; cancelled and refunded branch off early
// states. Delivered, cancelled and refunded are terminal.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// orderTransitions holds the allowed status transitions.
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in the given status may still be
// cancelled through the customer path. Stock is only restored for these
// early states; later states require the refund flow.
func Cancellable(status string) bool {
	return status == OrderStatusPending || status == OrderStatusConfirmed
}

var ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}

// InvalidTransitionError reports an illegal order-status change attempt.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %q to %q", e.From, e.To)
}

// OrderLine is an immutable snapshot of a purchased book at order
// creation time. It is decoupled from the live Book record so later
// catalog edits never alter historical orders.
type OrderLine struct {
	BookID         string `bson:"book_id" json:"bookId"`
	Title          string `bson:"title" json:"title"`
	Author         string `bson:"author" json:"author"`
	UnitPriceCents int64  `bson:"unit_price_cents" json:"unitPriceCents"`
	Quantity       int64  `bson:"quantity" json:"quantity"`
	ImageURL       string `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// Address is a shipping or billing destination. Field validation happens
// at the HTTP boundary; the core treats it as given data.
type Address struct {
	FullName string `bson:"full_name" json:"fullName" validate:"required,min=2"`
	Street   string `bson:"street" json:"street" validate:"required,min=5"`
	City     string `bson:"city" json:"city" validate:"required,min=2"`
	State    string `bson:"state" json:"state" validate:"required,min=2"`
	ZipCode  string `bson:"zip_code" json:"zipCode" validate:"required,min=5"`
	Country  string `bson:"country" json:"country,omitempty"`
	Phone    string `bson:"phone" json:"phone" validate:"required"`
}

// PaymentMethod describes how an order was paid for. Payment processing
// itself happens elsewhere; this is a descriptor frozen into the order.
type PaymentMethod struct {
	Type      string `bson:"type" json:"type" validate:"required,oneof=card cod paypal stripe"`
	CardLast4 string `bson:"card_last4,omitempty" json:"cardLast4,omitempty"`
	CardBrand string `bson:"card_brand,omitempty" json:"cardBrand,omitempty"`
}

// Pricing is the frozen price breakdown computed once at order creation.
type Pricing struct {
	SubtotalCents int64 `bson:"subtotal_cents" json:"subtotalCents"`
	TaxCents      int64 `bson:"tax_cents" json:"taxCents"`
	ShippingCents int64 `bson:"shipping_cents" json:"shippingCents"`
	DiscountCents int64 `bson:"discount_cents" json:"discountCents"`
	TotalCents    int64 `bson:"total_cents" json:"totalCents"`
}

// Pricing constants. Tax is a flat 8%; shipping is free above $50.
const (
	TaxRate               = 0.08
	FreeShippingOverCents = 5000
	FlatShippingCostCents = 999
)

// ComputePricing derives the frozen price breakdown from a subtotal.
// The discount field is reserved and always zero for now.
func ComputePricing(subtotalCents int64) Pricing {
	taxCents := int64(float64(subtotalCents)*TaxRate + 0.5)

	var shippingCents int64
	if subtotalCents <= FreeShippingOverCents {
		shippingCents = FlatShippingCostCents
	}

	return Pricing{
		SubtotalCents: subtotalCents,
		TaxCents:      taxCents,
		ShippingCents: shippingCents,
		DiscountCents: 0,
		TotalCents:    subtotalCents + taxCents + shippingCents,
	}
}

// Order is an immutable snapshot of a checked-out cart plus a status
// field. Orders are only ever mutated through status transitions and are
// never deleted; cancellation is a status change.
type Order struct {
	ID                 string        `bson:"_id,omitempty" json:"id"`
	OrderNumber        string        `bson:"order_number" json:"orderNumber"`
	UserID             string        `bson:"user_id" json:"-"`
	Lines              []OrderLine   `bson:"lines" json:"lines"`
	ShippingAddress    Address       `bson:"shipping_address" json:"shippingAddress"`
	BillingAddress     Address       `bson:"billing_address" json:"billingAddress"`
	PaymentMethod      PaymentMethod `bson:"payment_method" json:"paymentMethod"`
	Pricing            Pricing       `bson:"pricing" json:"pricing"`
	Status             string        `bson:"status" json:"status"`
	CancellationReason string        `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	TrackingNumber     string        `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	TrackingURL        string        `bson:"tracking_url,omitempty" json:"trackingUrl,omitempty"`
	EstimatedDelivery  time.Time     `bson:"estimated_delivery,omitempty" json:"estimatedDelivery,omitempty"`
	Notes              string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updatedAt"`
}

// OrderFilter narrows order listings for one user.
type OrderFilter struct {
	Status string
	Page   int64
	Limit  int64
}

// OrderStats summarizes a user's order history.
type OrderStats struct {
	TotalOrders       int64            `json:"totalOrders"`
	TotalSpentCents   int64            `json:"totalSpentCents"`
	AverageOrderCents int64            `json:"averageOrderCents"`
	StatusCounts      map[string]int64 `json:"statusCounts"`
}

// StatusUpdate carries the fields a status transition may set alongside
// the new status.
type StatusUpdate struct {
	Status             string
	CancellationReason string
	TrackingNumber     string
	TrackingURL        string
	EstimatedDelivery  time.Time
}

// OrderStore is the append-mostly order ledger.
type OrderStore interface {
	InsertOrder(ctx context.Context, order *Order) (*Order, error)
	// FindOrder scopes by user; admin paths pass an empty userID.
	FindOrder(ctx context.Context, id, userID string) (*Order, error)
	ListOrders(ctx context.Context, userID string, filter OrderFilter) ([]Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id string, update StatusUpdate) (*Order, error)
	OrderStats(ctx context.Context, userID string) (*OrderStats, error)
}
