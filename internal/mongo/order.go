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

// OrderStore implements domain.OrderStore on MongoDB. Orders are
// append-mostly: documents are inserted once and afterwards touched only
// by status transitions, never deleted.
type OrderStore struct {
	orders *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{orders: db.Collection(ordersCollection)}
}

// InsertOrder persists a new order snapshot.
func (s *OrderStore) InsertOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	now := time.Now()
	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := s.orders.InsertOne(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	return order, nil
}

// FindOrder returns an order by ID. A non-empty userID scopes the lookup
// to that owner; admin paths pass an empty userID.
func (s *OrderStore) FindOrder(ctx context.Context, id, userID string) (*domain.Order, error) {
	filter := bson.M{"_id": id}
	if userID != "" {
		filter["user_id"] = userID
	}

	var order domain.Order
	err := s.orders.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// ListOrders returns a user's orders newest-first plus the total match
// count for pagination.
func (s *OrderStore) ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	query := bson.M{"user_id": userID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 20 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	total, err := s.orders.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus applies a status transition and its side fields in a
// single document update, returning the updated order.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Order, error) {
	set := bson.M{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.CancellationReason != "" {
		set["cancellation_reason"] = update.CancellationReason
	}
	if update.TrackingNumber != "" {
		set["tracking_number"] = update.TrackingNumber
	}
	if update.TrackingURL != "" {
		set["tracking_url"] = update.TrackingURL
	}
	if !update.EstimatedDelivery.IsZero() {
		set["estimated_delivery"] = update.EstimatedDelivery
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &order, nil
}

// OrderStats aggregates one user's order totals and per-status counts.
func (s *OrderStore) OrderStats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	match := bson.D{{Key: "$match", Value: bson.M{"user_id": userID}}}

	summaryGroup := bson.D{{Key: "$group", Value: bson.M{
		"_id":         nil,
		"total":       bson.M{"$sum": 1},
		"spent_cents": bson.M{"$sum": "$pricing.total_cents"},
		"avg_cents":   bson.M{"$avg": "$pricing.total_cents"},
	}}}

	cursor, err := s.orders.Aggregate(ctx, mongo.Pipeline{match, summaryGroup})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &domain.OrderStats{StatusCounts: map[string]int64{}}

	var summary []struct {
		Total      int64   `bson:"total"`
		SpentCents int64   `bson:"spent_cents"`
		AvgCents   float64 `bson:"avg_cents"`
	}
	if err := cursor.All(ctx, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode order stats: %w", err)
	}
	if len(summary) > 0 {
		stats.TotalOrders = summary[0].Total
		stats.TotalSpentCents = summary[0].SpentCents
		stats.AverageOrderCents = int64(summary[0].AvgCents + 0.5)
	}

	statusGroup := bson.D{{Key: "$group", Value: bson.M{
		"_id":   "$status",
		"count": bson.M{"$sum": 1},
	}}}

	statusCursor, err := s.orders.Aggregate(ctx, mongo.Pipeline{match, statusGroup})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate status counts: %w", err)
	}
	defer statusCursor.Close(ctx)

	var counts []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := statusCursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}
	for _, c := range counts {
		stats.StatusCounts[c.Status] = c.Count
	}

	return stats, nil
}
