package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/pagebound/pagebound/internal/cache"
	"github.com/pagebound/pagebound/internal/domain"
)

// CartService provides business logic for shopping cart operations.
// Owner keys identify carts: a user ID for signed-in shoppers or a guest
// session key before sign-in.
type CartService interface {
	GetCart(ctx context.Context, ownerKey string) (*domain.CartView, error)
	AddItem(ctx context.Context, ownerKey, bookID string, quantity int64) (*domain.CartView, error)
	UpdateItemQuantity(ctx context.Context, ownerKey, bookID string, quantity int64) (*domain.CartView, error)
	RemoveItem(ctx context.Context, ownerKey, bookID string) (*domain.CartView, error)
	ClearCart(ctx context.Context, ownerKey string) error
	CartCount(ctx context.Context, ownerKey string) (int64, error)
	MergeGuestCart(ctx context.Context, guestKey, userKey string) (*domain.CartView, error)
}

type cartService struct {
	carts   domain.CartStore
	catalog domain.CatalogStore
	cache   cache.CartCache
	group   singleflight.Group
	logger  *slog.Logger
}

// NewCartService creates a new CartService instance. The cache may be
// nil, in which case every read goes to the store.
func NewCartService(carts domain.CartStore, catalog domain.CatalogStore, cartCache cache.CartCache, logger *slog.Logger) CartService {
	return &cartService{
		carts:   carts,
		catalog: catalog,
		cache:   cartCache,
		logger:  logger,
	}
}

// GetCart returns the owner's cart populated with live catalog data. A
// missing cart renders as an empty one rather than an error.
func (s *cartService) GetCart(ctx context.Context, ownerKey string) (*domain.CartView, error) {
	cart, err := s.loadCached(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItem adds quantity copies of a book to the cart, folding into an
// existing line capped at the per-line maximum. The stock check here is
// advisory; the authoritative check happens at checkout.
func (s *cartService) AddItem(ctx context.Context, ownerKey, bookID string, quantity int64) (*domain.CartView, error) {
	if quantity < 1 || quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.Active {
		return nil, &BookUnavailableError{Title: book.Title, BookID: bookID}
	}
	if book.Stock < quantity {
		return nil, &InsufficientStockError{Title: book.Title, Available: book.Stock}
	}

	cart, err := s.loadOrNew(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	if err := cart.AddLine(bookID, quantity); err != nil {
		return nil, err
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// UpdateItemQuantity sets a line's quantity. Zero or negative removes
// the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, ownerKey, bookID string, quantity int64) (*domain.CartView, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	cart, err := s.loadOrNew(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	cart.SetLineQuantity(bookID, quantity)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// RemoveItem removes a book's line from the cart. Removing an absent
// line succeeds without effect.
func (s *cartService) RemoveItem(ctx context.Context, ownerKey, bookID string) (*domain.CartView, error) {
	cart, err := s.loadOrNew(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	cart.RemoveLine(bookID)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// ClearCart empties the owner's cart.
func (s *cartService) ClearCart(ctx context.Context, ownerKey string) error {
	cart, err := s.loadOrNew(ctx, ownerKey)
	if err != nil {
		return err
	}
	cart.Clear()
	return s.save(ctx, cart)
}

// CartCount returns the total item count for the cart badge.
func (s *cartService) CartCount(ctx context.Context, ownerKey string) (int64, error) {
	cart, err := s.loadCached(ctx, ownerKey)
	if err != nil {
		return 0, err
	}
	return cart.TotalItems(), nil
}

// MergeGuestCart folds a guest cart into the user's cart at sign-in.
// Lines whose books have vanished, been deactivated, or lack stock for
// the merged quantity are skipped silently. The guest cart is emptied
// afterwards.
func (s *cartService) MergeGuestCart(ctx context.Context, guestKey, userKey string) (*domain.CartView, error) {
	guest, err := s.carts.LoadCart(ctx, guestKey)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return s.GetCart(ctx, userKey)
		}
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	cart, err := s.loadOrNew(ctx, userKey)
	if err != nil {
		return nil, err
	}

	for _, line := range guest.Lines {
		book, err := s.catalog.GetBook(ctx, line.BookID)
		if err != nil {
			s.logger.Debug("skipping unmergeable cart line", "book_id", line.BookID, "error", err)
			continue
		}

		merged := line.Quantity
		existing := cart.Line(line.BookID)
		if existing != nil {
			merged += existing.Quantity
		}
		if merged > domain.MaxLineQuantity {
			merged = domain.MaxLineQuantity
		}
		if !book.Purchasable(merged) {
			s.logger.Debug("skipping unmergeable cart line",
				"book_id", line.BookID, "requested", merged, "stock", book.Stock)
			continue
		}

		if existing != nil {
			cart.SetLineQuantity(line.BookID, merged)
		} else if err := cart.AddLine(line.BookID, merged); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	guest.Clear()
	if err := s.save(ctx, guest); err != nil {
		s.logger.Warn("failed to clear guest cart after merge", "error", err)
	}

	return s.buildView(ctx, cart)
}

// loadCached reads through the cache with singleflight so concurrent
// misses for one owner collapse into a single store query.
func (s *cartService) loadCached(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	if s.cache != nil {
		cart, err := s.cache.Get(ctx, ownerKey)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cart cache read failed", "error", err)
		}
	}

	v, err, _ := s.group.Do(ownerKey, func() (interface{}, error) {
		cart, err := s.loadOrNew(ctx, ownerKey)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, ownerKey, cart); err != nil {
				s.logger.Warn("cart cache write failed", "error", err)
			}
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// loadOrNew fetches the owner's cart from the store, materializing an
// empty cart when none exists.
func (s *cartService) loadOrNew(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	cart, err := s.carts.LoadCart(ctx, ownerKey)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.NewCart(ownerKey), nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// save persists the cart and drops the cached copy so the next read
// sees the write.
func (s *cartService) save(ctx context.Context, cart *domain.Cart) error {
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cart.OwnerKey); err != nil {
			s.logger.Warn("cart cache invalidation failed", "owner_key", cart.OwnerKey, "error", err)
		}
	}
	return nil
}

// buildView joins cart lines with live catalog records. Lines whose
// books no longer exist or are inactive are omitted from the view but
// left in the stored cart; checkout surfaces them explicitly.
func (s *cartService) buildView(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	view := &domain.CartView{
		Cart:  cart,
		Items: []domain.CartItemView{},
	}

	for _, line := range cart.Lines {
		book, err := s.catalog.GetBook(ctx, line.BookID)
		if err != nil {
			if errors.Is(err, domain.ErrBookNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load book %s: %w", line.BookID, err)
		}
		if !book.Active {
			continue
		}

		view.Items = append(view.Items, domain.CartItemView{
			BookID:         book.ID,
			Title:          book.Title,
			Author:         book.Author,
			ImageURL:       book.ImageURL,
			Quantity:       line.Quantity,
			UnitPriceCents: book.PriceCents,
			LineTotalCents: book.PriceCents * line.Quantity,
			Availability:   book.Availability(),
		})
		view.TotalItems += line.Quantity
		view.TotalPriceCents += book.PriceCents * line.Quantity
	}

	return view, nil
}
