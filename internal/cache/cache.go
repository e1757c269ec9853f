package cache

import (
	"context"
	"errors"

	"github.com/pagebound/pagebound/internal/domain"
)

// CartCache is a read-through cache for carts keyed by owner. The Mongo
// document remains the source of truth; every cart write invalidates the
// cached copy.
type CartCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)
	Set(ctx context.Context, ownerKey string, cart *domain.Cart) error
	Delete(ctx context.Context, ownerKey string) error
}

var ErrCacheMiss = errors.New("cache miss")
