package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// MessageRepository manages the append-only conversation transcript.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListRecent returns the last limit messages in chronological order;
	// this is the extraction context window.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (session_id, role, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.SessionID,
		msg.Role,
		msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 12
	}
	const query = `
        SELECT id, session_id, role, content, created_at FROM (
            SELECT id, session_id, role, content, created_at
            FROM messages WHERE session_id=$1
            ORDER BY created_at DESC, id DESC LIMIT $2
        ) recent ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	const query = `
        SELECT id, session_id, role, content, created_at
        FROM messages WHERE session_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
