package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

type usageDoc struct {
	ID           string         `bson:"_id"`
	UserID       *string        `bson:"user_id,omitempty"`
	SessionID    *string        `bson:"session_id,omitempty"`
	Operation    string         `bson:"operation"`
	Tokens       int            `bson:"tokens"`
	CostUSD      float64        `bson:"cost_usd"`
	DurationMs   int64          `bson:"duration_ms"`
	Success      bool           `bson:"success"`
	ErrorMessage string         `bson:"error_message,omitempty"`
	Metadata     map[string]any `bson:"metadata,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
}

func (d usageDoc) toDomain() (domain.UsageRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.UsageRecord{}, err
	}
	rec := domain.UsageRecord{
		ID:           id,
		Operation:    d.Operation,
		Tokens:       d.Tokens,
		CostUSD:      d.CostUSD,
		DurationMs:   d.DurationMs,
		Success:      d.Success,
		ErrorMessage: d.ErrorMessage,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
	}
	if d.UserID != nil {
		uid, err := uuid.Parse(*d.UserID)
		if err != nil {
			return domain.UsageRecord{}, err
		}
		rec.UserID = &uid
	}
	if d.SessionID != nil {
		sid, err := uuid.Parse(*d.SessionID)
		if err != nil {
			return domain.UsageRecord{}, err
		}
		rec.SessionID = &sid
	}
	return rec, nil
}

// UsageRepository implements domain.UsageRepository on MongoDB
type UsageRepository struct {
	coll *mongo.Collection
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(store *Store) *UsageRepository {
	return &UsageRepository{coll: store.db.Collection(usageCollection)}
}

func (r *UsageRepository) Insert(ctx context.Context, records []domain.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, 0, len(records))
	for _, rec := range records {
		doc := usageDoc{
			ID:           rec.ID.String(),
			Operation:    rec.Operation,
			Tokens:       rec.Tokens,
			CostUSD:      rec.CostUSD,
			DurationMs:   rec.DurationMs,
			Success:      rec.Success,
			ErrorMessage: rec.ErrorMessage,
			Metadata:     rec.Metadata,
			CreatedAt:    rec.CreatedAt,
		}
		if rec.UserID != nil {
			id := rec.UserID.String()
			doc.UserID = &id
		}
		if rec.SessionID != nil {
			id := rec.SessionID.String()
			doc.SessionID = &id
		}
		docs = append(docs, doc)
	}

	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return domain.E(domain.CodePersistence, "mongo.usage.insert", err)
	}
	return nil
}

// ListByUser returns the user's usage records, newest first.
func (r *UsageRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.UsageRecord, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.usage.list", err)
	}
	defer cursor.Close(ctx)

	var records []domain.UsageRecord
	for cursor.Next(ctx) {
		var doc usageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.usage.list", err)
		}
		rec, err := doc.toDomain()
		if err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.usage.list", err)
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.usage.list", err)
	}

	return records, nil
}

func (r *UsageRepository) Summarize(ctx context.Context, userID *uuid.UUID, start, end time.Time) (*domain.UsageSummary, error) {
	match := bson.M{
		"created_at": bson.M{"$gte": start, "$lt": end},
	}
	if userID != nil {
		match["user_id"] = userID.String()
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$operation",
			"count":  bson.M{"$sum": 1},
			"tokens": bson.M{"$sum": "$tokens"},
			"cost":   bson.M{"$sum": "$cost_usd"},
			"errors": bson.M{"$sum": bson.M{"$cond": bson.A{"$success", 0, 1}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.usage.summarize", err)
	}
	defer cursor.Close(ctx)

	summary := &domain.UsageSummary{Start: start, End: end}
	for cursor.Next(ctx) {
		var row struct {
			Operation string  `bson:"_id"`
			Count     int64   `bson:"count"`
			Tokens    int64   `bson:"tokens"`
			Cost      float64 `bson:"cost"`
			Errors    int64   `bson:"errors"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.usage.summarize", err)
		}
		summary.ByOperation = append(summary.ByOperation, domain.OperationStats{
			Operation: row.Operation,
			Count:     row.Count,
			Tokens:    row.Tokens,
			CostUSD:   row.Cost,
			Errors:    row.Errors,
		})
		summary.TotalOperations += row.Count
		summary.TotalTokens += row.Tokens
		summary.TotalCostUSD += row.Cost
		summary.ErrorCount += row.Errors
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.usage.summarize", err)
	}
	summary.SuccessCount = summary.TotalOperations - summary.ErrorCount

	return summary, nil
}
