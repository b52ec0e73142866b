package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// UsageRepository implements domain.UsageRepository
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{pool: db.Pool}
}

// Insert writes a batch of usage records.
func (r *UsageRepository) Insert(ctx context.Context, records []domain.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO usage_records (id, user_id, session_id, operation, tokens, cost_usd, duration_ms, success, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		var metadataJSON []byte
		if rec.Metadata != nil {
			var err error
			metadataJSON, err = json.Marshal(rec.Metadata)
			if err != nil {
				return domain.E(domain.CodePersistence, "postgres.usage.insert", fmt.Errorf("failed to marshal metadata: %w", err))
			}
		}
		batch.Queue(query,
			rec.ID,
			rec.UserID,
			rec.SessionID,
			rec.Operation,
			rec.Tokens,
			rec.CostUSD,
			rec.DurationMs,
			rec.Success,
			rec.ErrorMessage,
			metadataJSON,
			rec.CreatedAt,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return domain.E(domain.CodePersistence, "postgres.usage.insert", err)
	}
	return nil
}

// ListByUser returns the user's usage records, newest first.
func (r *UsageRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.UsageRecord, error) {
	query := `
		SELECT id, user_id, session_id, operation, tokens, cost_usd, duration_ms, success, error_message, metadata, created_at
		FROM usage_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "postgres.usage.list", err)
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		var metadataJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.SessionID,
			&rec.Operation,
			&rec.Tokens,
			&rec.CostUSD,
			&rec.DurationMs,
			&rec.Success,
			&rec.ErrorMessage,
			&metadataJSON,
			&rec.CreatedAt,
		); err != nil {
			return nil, domain.E(domain.CodePersistence, "postgres.usage.list", fmt.Errorf("failed to scan record: %w", err))
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
				return nil, domain.E(domain.CodePersistence, "postgres.usage.list", fmt.Errorf("failed to unmarshal metadata: %w", err))
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Summarize aggregates usage records over [start, end), optionally
// filtered to one user.
func (r *UsageRepository) Summarize(ctx context.Context, userID *uuid.UUID, start, end time.Time) (*domain.UsageSummary, error) {
	query := `
		SELECT operation,
		       COUNT(*),
		       COALESCE(SUM(tokens), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COUNT(*) FILTER (WHERE NOT success)
		FROM usage_records
		WHERE created_at >= $1 AND created_at < $2
		  AND ($3::uuid IS NULL OR user_id = $3)
		GROUP BY operation
		ORDER BY operation
	`

	rows, err := r.pool.Query(ctx, query, start, end, userID)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "postgres.usage.summarize", err)
	}
	defer rows.Close()

	summary := &domain.UsageSummary{Start: start, End: end}
	for rows.Next() {
		var op domain.OperationStats
		if err := rows.Scan(&op.Operation, &op.Count, &op.Tokens, &op.CostUSD, &op.Errors); err != nil {
			return nil, domain.E(domain.CodePersistence, "postgres.usage.summarize", fmt.Errorf("failed to scan stats: %w", err))
		}
		summary.ByOperation = append(summary.ByOperation, op)
		summary.TotalOperations += op.Count
		summary.TotalTokens += op.Tokens
		summary.TotalCostUSD += op.CostUSD
		summary.ErrorCount += op.Errors
	}
	summary.SuccessCount = summary.TotalOperations - summary.ErrorCount

	return summary, nil
}
