// Package mongo implements the catalog, cart and order stores on top of
// MongoDB. Cross-document transactions are deliberately not used: every
// write is a single-document atomic operation, and the stock movement
// ledger in book.go makes multi-document sequences safe to retry.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagebound/pagebound/internal/domain"
)

// Collection names.
const (
	booksCollection     = "books"
	cartsCollection     = "carts"
	ordersCollection    = "orders"
	movementsCollection = "stock_movements"
)

// Connect opens a client against the given URI and verifies the
// connection with a ping.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// EnsureIndexes creates the indexes the stores rely on. Safe to call on
// every startup; index creation is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	cartIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Untouched carts expire; every save refreshes updated_at.
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(domain.CartTTL / time.Second)),
		},
	}
	if _, err := db.Collection(cartsCollection).Indexes().CreateMany(ctx, cartIndexes); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	bookIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price_cents", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection(booksCollection).Indexes().CreateMany(ctx, bookIndexes); err != nil {
		return fmt.Errorf("failed to create book indexes: %w", err)
	}

	orderIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(ordersCollection).Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	movementIndexes := []mongo.IndexModel{
		{
			// One applied movement per order line per direction. The
			// unique index is what makes replays no-ops.
			Keys: bson.D{
				{Key: "order_id", Value: 1},
				{Key: "book_id", Value: 1},
				{Key: "direction", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(movementsCollection).Indexes().CreateMany(ctx, movementIndexes); err != nil {
		return fmt.Errorf("failed to create stock movement indexes: %w", err)
	}

	return nil
}
