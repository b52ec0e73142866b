package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

type messageDoc struct {
	ID         string         `bson:"_id"`
	SessionID  string         `bson:"session_id"`
	Role       string         `bson:"role"`
	Content    string         `bson:"content"`
	TokensUsed int            `bson:"tokens_used"`
	CostUSD    float64        `bson:"cost_usd"`
	Metadata   map[string]any `bson:"metadata,omitempty"`
	CreatedAt  time.Time      `bson:"created_at"`
}

// MessageRepository implements domain.MessageRepository on MongoDB
type MessageRepository struct {
	coll     *mongo.Collection
	sessions *mongo.Collection
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(store *Store) *MessageRepository {
	return &MessageRepository{
		coll:     store.db.Collection(messagesCollection),
		sessions: store.db.Collection(sessionsCollection),
	}
}

// Append writes messages in order. Mongo has no foreign keys, so the
// session's existence is checked here to keep the referential
// invariant the relational backend gets for free.
func (r *MessageRepository) Append(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	sessionID := messages[0].SessionID.String()
	err := r.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Errorf(domain.CodeSessionNotFound, "mongo.message.append", "session %s not found", sessionID)
		}
		return domain.E(domain.CodePersistence, "mongo.message.append", err)
	}

	docs := make([]any, 0, len(messages))
	for _, m := range messages {
		docs = append(docs, messageDoc{
			ID:         m.ID.String(),
			SessionID:  m.SessionID.String(),
			Role:       string(m.Role),
			Content:    m.Content,
			TokensUsed: m.TokensUsed,
			CostUSD:    m.CostUSD,
			Metadata:   m.Metadata,
			CreatedAt:  m.CreatedAt,
		})
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return domain.E(domain.CodePersistence, "mongo.message.append", err)
	}
	return nil
}

// ListBySession retrieves the most recent messages for a session in
// chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"session_id": sessionID.String()}, opts)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.message.list", err)
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.message.list", err)
		}

		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.message.list", err)
		}
		sid, err := uuid.Parse(doc.SessionID)
		if err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.message.list", err)
		}

		messages = append(messages, domain.Message{
			ID:         id,
			SessionID:  sid,
			Role:       domain.MessageRole(doc.Role),
			Content:    doc.Content,
			TokensUsed: doc.TokensUsed,
			CostUSD:    doc.CostUSD,
			Metadata:   doc.Metadata,
			CreatedAt:  doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.message.list", err)
	}

	// Reverse to return chronological order (oldest first)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
