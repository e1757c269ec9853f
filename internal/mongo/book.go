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

// CatalogStore implements domain.CatalogStore on MongoDB.
type CatalogStore struct {
	books     *mongo.Collection
	movements *mongo.Collection
}

// NewCatalogStore creates a catalog store over the books and
// stock_movements collections.
func NewCatalogStore(db *mongo.Database) *CatalogStore {
	return &CatalogStore{
		books:     db.Collection(booksCollection),
		movements: db.Collection(movementsCollection),
	}
}

// GetBook returns a single book by ID.
func (s *CatalogStore) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	err := s.books.FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// InsertBook stores a new book. Used by seeding and tests; the serving
// paths never create books.
func (s *CatalogStore) InsertBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	now := time.Now()
	if book.ID == "" {
		book.ID = primitive.NewObjectID().Hex()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = now

	if _, err := s.books.InsertOne(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}
	return book, nil
}

// ListBooks returns active books matching the filter plus the total
// match count for pagination.
func (s *CatalogStore) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, int64, error) {
	query := bson.M{"active": true}

	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.MinPriceCents > 0 || filter.MaxPriceCents > 0 {
		price := bson.M{}
		if filter.MinPriceCents > 0 {
			price["$gte"] = filter.MinPriceCents
		}
		if filter.MaxPriceCents > 0 {
			price["$lte"] = filter.MaxPriceCents
		}
		query["price_cents"] = price
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"author": pattern},
			bson.M{"description": pattern},
		}
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	switch filter.Sort {
	case "title":
		sort = bson.D{{Key: "title", Value: 1}}
	case "author":
		sort = bson.D{{Key: "author", Value: 1}}
	case "price":
		sort = bson.D{{Key: "price_cents", Value: 1}}
	case "oldest":
		sort = bson.D{{Key: "created_at", Value: 1}}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 50 {
		limit = 12
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.books.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	defer cursor.Close(ctx)

	var books []domain.Book
	if err := cursor.All(ctx, &books); err != nil {
		return nil, 0, fmt.Errorf("failed to decode books: %w", err)
	}

	total, err := s.books.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	return books, total, nil
}

// ApplyStockMovement records a ledger entry and adjusts the book's stock
// counter, at most once per (order, book, direction).
//
// The ledger insert happens first: its unique index turns a replay into
// a duplicate-key error, which is treated as success without touching the
// counter again. A reserve adjusts stock only through a conditional
// update, so two checkouts racing over the last copies cannot both win.
func (s *CatalogStore) ApplyStockMovement(ctx context.Context, m domain.StockMovement) error {
	if m.AppliedAt.IsZero() {
		m.AppliedAt = time.Now()
	}

	if _, err := s.movements.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Movement already applied for this order line.
			return nil
		}
		return fmt.Errorf("failed to record stock movement: %w", err)
	}

	var filter, update bson.M
	switch m.Direction {
	case domain.MovementReserve:
		filter = bson.M{
			"_id":    m.BookID,
			"active": true,
			"stock":  bson.M{"$gte": m.Quantity},
		}
		update = bson.M{
			"$inc": bson.M{"stock": -m.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		}
	case domain.MovementRestore:
		filter = bson.M{"_id": m.BookID}
		update = bson.M{
			"$inc": bson.M{"stock": m.Quantity},
			"$set": bson.M{"updated_at": time.Now()},
		}
	default:
		return domain.Invalid("catalog.stock", fmt.Sprintf("unknown stock movement direction %q", m.Direction))
	}

	result, err := s.books.UpdateOne(ctx, filter, update)
	if err != nil {
		// Counter untouched; drop the ledger entry so a retry can
		// reapply the whole movement.
		s.deleteMovement(ctx, m)
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	if result.MatchedCount == 0 {
		s.deleteMovement(ctx, m)
		if m.Direction == domain.MovementRestore {
			return domain.ErrBookNotFound
		}
		return s.classifyReserveFailure(ctx, m.BookID)
	}

	return nil
}

// ReverseStockMovement undoes a previously applied movement: it removes
// the ledger entry and reverts the counter adjustment. Reversing a
// movement that was never applied is a no-op. Used by checkout
// compensation when a later step of the commit fails.
func (s *CatalogStore) ReverseStockMovement(ctx context.Context, m domain.StockMovement) error {
	result, err := s.movements.DeleteOne(ctx, bson.M{
		"order_id":  m.OrderID,
		"book_id":   m.BookID,
		"direction": m.Direction,
	})
	if err != nil {
		return fmt.Errorf("failed to delete stock movement: %w", err)
	}
	if result.DeletedCount == 0 {
		return nil
	}

	inc := m.Quantity
	if m.Direction == domain.MovementRestore {
		inc = -m.Quantity
	}

	_, err = s.books.UpdateOne(ctx, bson.M{"_id": m.BookID}, bson.M{
		"$inc": bson.M{"stock": inc},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to revert stock adjustment: %w", err)
	}

	return nil
}

// classifyReserveFailure distinguishes a missing or inactive book from a
// plain stock shortfall after a conditional decrement found no match.
func (s *CatalogStore) classifyReserveFailure(ctx context.Context, bookID string) error {
	var book domain.Book
	err := s.books.FindOne(ctx, bson.M{"_id": bookID}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("failed to inspect book after stock conflict: %w", err)
	}
	if !book.Active {
		return domain.ErrBookUnavailable
	}
	return domain.ErrInsufficientStock
}

func (s *CatalogStore) deleteMovement(ctx context.Context, m domain.StockMovement) {
	// Best effort; a leftover ledger entry only means a retry of the
	// same order line is treated as already applied.
	_, _ = s.movements.DeleteOne(ctx, bson.M{
		"order_id":  m.OrderID,
		"book_id":   m.BookID,
		"direction": m.Direction,
	})
}
