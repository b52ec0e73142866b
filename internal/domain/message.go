package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a session's history. Messages are append-only;
// every message references a session that exists at write time.
type Message struct {
	ID         uuid.UUID      `json:"id" bson:"_id"`
	SessionID  uuid.UUID      `json:"session_id" bson:"session_id"`
	Role       MessageRole    `json:"role" bson:"role"`
	Content    string         `json:"content" bson:"content"`
	TokensUsed int            `json:"tokens_used,omitempty" bson:"tokens_used"`
	CostUSD    float64        `json:"cost_usd,omitempty" bson:"cost_usd"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Append writes messages in order. The store enforces the session
	// foreign key.
	Append(ctx context.Context, messages []Message) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error)
}
