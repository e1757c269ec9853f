package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagebound/pagebound/internal/domain"
)

// CartStore implements domain.CartStore on MongoDB. One document per
// owner key; the TTL index on updated_at expires untouched carts.
type CartStore struct {
	carts *mongo.Collection
}

func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{carts: db.Collection(cartsCollection)}
}

// LoadCart returns the owner's cart, or domain.ErrCartNotFound.
func (s *CartStore) LoadCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.carts.FindOne(ctx, bson.M{"owner_key": ownerKey}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// SaveCart upserts the cart by owner key. Saving refreshes updated_at,
// which restarts the TTL clock. Concurrent saves by the same owner
// resolve last-write-wins.
func (s *CartStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.ID == "" {
		cart.ID = primitive.NewObjectID().Hex()
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"owner_key": cart.OwnerKey}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.carts.ReplaceOne(ctx, filter, cart, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
