package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation identifies what kind of work a UsageRecord accounts for.
const (
	OperationChat         = "chat"
	OperationTitle        = "title"
	OperationThreadCreate = "thread_create"
)

// UsageRecord is a write-once accounting entry for a single operation,
// independent of any session's lifecycle.
type UsageRecord struct {
	ID           uuid.UUID      `json:"id" bson:"_id"`
	UserID       *uuid.UUID     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	SessionID    *uuid.UUID     `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Operation    string         `json:"operation" bson:"operation"`
	Tokens       int            `json:"tokens" bson:"tokens"`
	CostUSD      float64        `json:"cost_usd" bson:"cost_usd"`
	DurationMs   int64          `json:"duration_ms" bson:"duration_ms"`
	Success      bool           `json:"success" bson:"success"`
	ErrorMessage string         `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
}

// OperationStats aggregates records for one operation kind.
type OperationStats struct {
	Operation string  `json:"operation"`
	Count     int64   `json:"count"`
	Tokens    int64   `json:"tokens"`
	CostUSD   float64 `json:"cost_usd"`
	Errors    int64   `json:"errors"`
}

// UsageSummary aggregates usage over a time window.
type UsageSummary struct {
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"`
	TotalOperations int64            `json:"total_operations"`
	TotalTokens     int64            `json:"total_tokens"`
	TotalCostUSD    float64          `json:"total_cost_usd"`
	SuccessCount    int64            `json:"success_count"`
	ErrorCount      int64            `json:"error_count"`
	ByOperation     []OperationStats `json:"by_operation"`
}

// UsageRepository defines the interface for usage storage
type UsageRepository interface {
	Insert(ctx context.Context, records []UsageRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]UsageRecord, error)
	Summarize(ctx context.Context, userID *uuid.UUID, start, end time.Time) (*UsageSummary, error)
}
