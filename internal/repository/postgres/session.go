package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO chat_sessions (id, user_id, thread_id, title, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.ThreadID,
		session.Title,
		session.CreatedAt,
		session.LastMessageAt,
	)
	if err != nil {
		return domain.E(domain.CodePersistence, "postgres.session.create", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, user_id, thread_id, title, created_at, last_message_at
		FROM chat_sessions
		WHERE id = $1
	`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.ThreadID,
		&s.Title,
		&s.CreatedAt,
		&s.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Errorf(domain.CodeSessionNotFound, "postgres.session.get", "session %s not found", id)
		}
		return nil, domain.E(domain.CodePersistence, "postgres.session.get", err)
	}
	return &s, nil
}

func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, update domain.SessionUpdate) error {
	query := `
		UPDATE chat_sessions
		SET thread_id = COALESCE($1, thread_id),
		    title = COALESCE($2, title),
		    last_message_at = COALESCE($3, last_message_at)
		WHERE id = $4
	`
	tag, err := r.pool.Exec(ctx, query, update.ThreadID, update.Title, update.LastMessageAt, id)
	if err != nil {
		return domain.E(domain.CodePersistence, "postgres.session.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeSessionNotFound, "postgres.session.update", "session %s not found", id)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	query := `
		SELECT id, user_id, thread_id, title, created_at, last_message_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, domain.E(domain.CodePersistence, "postgres.session.list", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.ThreadID,
			&s.Title,
			&s.CreatedAt,
			&s.LastMessageAt,
		); err != nil {
			return nil, domain.E(domain.CodePersistence, "postgres.session.list", fmt.Errorf("failed to scan session: %w", err))
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Messages cascade via the foreign key.
	query := `DELETE FROM chat_sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return domain.E(domain.CodePersistence, "postgres.session.delete", err)
	}
	return nil
}
