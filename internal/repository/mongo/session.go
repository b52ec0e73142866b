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

// sessionDoc is the stored form of a session; ids are kept as strings
// so documents stay readable in the shell.
type sessionDoc struct {
	ID            string    `bson:"_id"`
	UserID        *string   `bson:"user_id,omitempty"`
	ThreadID      string    `bson:"thread_id"`
	Title         string    `bson:"title"`
	CreatedAt     time.Time `bson:"created_at"`
	LastMessageAt time.Time `bson:"last_message_at"`
}

func toSessionDoc(s *domain.Session) sessionDoc {
	doc := sessionDoc{
		ID:            s.ID.String(),
		ThreadID:      s.ThreadID,
		Title:         s.Title,
		CreatedAt:     s.CreatedAt,
		LastMessageAt: s.LastMessageAt,
	}
	if s.UserID != nil {
		id := s.UserID.String()
		doc.UserID = &id
	}
	return doc
}

func (d sessionDoc) toDomain() (*domain.Session, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	s := &domain.Session{
		ID:            id,
		ThreadID:      d.ThreadID,
		Title:         d.Title,
		CreatedAt:     d.CreatedAt,
		LastMessageAt: d.LastMessageAt,
	}
	if d.UserID != nil {
		uid, err := uuid.Parse(*d.UserID)
		if err != nil {
			return nil, err
		}
		s.UserID = &uid
	}
	return s, nil
}

// SessionRepository implements domain.SessionRepository on MongoDB
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{coll: store.db.Collection(sessionsCollection)}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if _, err := r.coll.InsertOne(ctx, toSessionDoc(session)); err != nil {
		return domain.E(domain.CodePersistence, "mongo.session.create", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var doc sessionDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.Errorf(domain.CodeSessionNotFound, "mongo.session.get", "session %s not found", id)
		}
		return nil, domain.E(domain.CodePersistence, "mongo.session.get", err)
	}

	session, err := doc.toDomain()
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.session.get", err)
	}
	return session, nil
}

func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, update domain.SessionUpdate) error {
	set := bson.M{}
	if update.ThreadID != nil {
		set["thread_id"] = *update.ThreadID
	}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.LastMessageAt != nil {
		set["last_message_at"] = *update.LastMessageAt
	}
	if len(set) == 0 {
		return nil
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		return domain.E(domain.CodePersistence, "mongo.session.update", err)
	}
	if result.MatchedCount == 0 {
		return domain.Errorf(domain.CodeSessionNotFound, "mongo.session.update", "session %s not found", id)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.session.list", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	for cursor.Next(ctx) {
		var doc sessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.session.list", err)
		}
		session, err := doc.toDomain()
		if err != nil {
			return nil, domain.E(domain.CodePersistence, "mongo.session.list", err)
		}
		sessions = append(sessions, *session)
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.E(domain.CodePersistence, "mongo.session.list", err)
	}
	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return domain.E(domain.CodePersistence, "mongo.session.delete", err)
	}
	// No cascade in Mongo; remove the session's messages explicitly.
	messages := r.coll.Database().Collection(messagesCollection)
	if _, err := messages.DeleteMany(ctx, bson.M{"session_id": id.String()}); err != nil {
		return domain.E(domain.CodePersistence, "mongo.session.delete", err)
	}
	return nil
}
