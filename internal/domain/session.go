package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session represents one conversation between a user and the assistant.
// ThreadID is the remote assistant service's conversation handle; it is
// empty until the first message binds a thread.
type Session struct {
	ID            uuid.UUID  `json:"session_id" bson:"_id"`
	UserID        *uuid.UUID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	ThreadID      string     `json:"thread_id,omitempty" bson:"thread_id"`
	Title         string     `json:"title" bson:"title"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	LastMessageAt time.Time  `json:"last_message_at" bson:"last_message_at"`
}

// DefaultSessionTitle is used until a real title is derived from the
// first user message.
const DefaultSessionTitle = "New Chat"

// SessionUpdate carries the mutable session fields. Nil means unchanged.
type SessionUpdate struct {
	ThreadID      *string
	Title         *string
	LastMessageAt *time.Time
}

// TitleFromMessage derives a session title from the first user message,
// collapsing whitespace and truncating to 50 runes.
func TitleFromMessage(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return DefaultSessionTitle
	}
	runes := []rune(title)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return title
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, id uuid.UUID, update SessionUpdate) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
