package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{pool: db.Pool}
}

// Append inserts messages in order inside one transaction, so a
// user/assistant pair is either fully recorded or not at all.
func (r *MessageRepository) Append(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	query := `
		INSERT INTO chat_messages (id, session_id, role, content, tokens_used, cost_usd, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, m := range messages {
			var metadataJSON []byte
			if m.Metadata != nil {
				var err error
				metadataJSON, err = json.Marshal(m.Metadata)
				if err != nil {
					return fmt.Errorf("failed to marshal metadata: %w", err)
				}
			}
			if _, err := tx.Exec(ctx, query,
				m.ID,
				m.SessionID,
				m.Role,
				m.Content,
				m.TokensUsed,
				m.CostUSD,
				metadataJSON,
				m.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.E(domain.CodePersistence, "postgres.message.append", err)
	}
	return nil
}

// ListBySession retrieves the most recent messages for a session in
// chronological order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, tokens_used, cost_usd, metadata, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "postgres.message.list", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var roleStr string
		var metadataJSON []byte

		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&roleStr,
			&m.Content,
			&m.TokensUsed,
			&m.CostUSD,
			&metadataJSON,
			&m.CreatedAt,
		); err != nil {
			return nil, domain.E(domain.CodePersistence, "postgres.message.list", fmt.Errorf("failed to scan message: %w", err))
		}
		m.Role = domain.MessageRole(roleStr)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
				return nil, domain.E(domain.CodePersistence, "postgres.message.list", fmt.Errorf("failed to unmarshal metadata: %w", err))
			}
		}
		messages = append(messages, m)
	}

	// Reverse to return chronological order (oldest first)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
