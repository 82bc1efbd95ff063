package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// SessionRepository encapsulates conversation session persistence. The store
// is the sole authority for session state; callers must not hold sessions in
// memory across requests.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Update(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetActiveByCustomer returns the most recent ACTIVE-or-ESCALATED
	// session for a customer, or pgx.ErrNoRows.
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Session, error)
	MarkResolved(ctx context.Context, sessionID string) error
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	facts, err := json.Marshal(session.Facts)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chat_sessions (id, customer_id, status, current_stage, facts)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		session.ID,
		session.CustomerID,
		session.Status,
		session.Stage,
		facts,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) error {
	facts, err := json.Marshal(session.Facts)
	if err != nil {
		return err
	}
	const query = `
        UPDATE chat_sessions SET status=$1, current_stage=$2, facts=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		session.Status,
		session.Stage,
		facts,
		session.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `
        SELECT id, customer_id, status, current_stage, facts, created_at, updated_at
        FROM chat_sessions WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *sessionRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Session, error) {
	const query = `
        SELECT id, customer_id, status, current_stage, facts, created_at, updated_at
        FROM chat_sessions
        WHERE customer_id=$1 AND status IN ('ACTIVE','ESCALATED')
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, customerID)
}

func (r *sessionRepository) MarkResolved(ctx context.Context, sessionID string) error {
	const query = `UPDATE chat_sessions SET status='RESOLVED', updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Session, error) {
	var (
		session  domain.Session
		rawFacts []byte
		rawStage string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&session.ID,
		&session.CustomerID,
		&session.Status,
		&rawStage,
		&rawFacts,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	session.Stage = domain.NormalizeStage(rawStage)
	session.Facts = domain.Facts{}
	if len(rawFacts) > 0 {
		if err := json.Unmarshal(rawFacts, &session.Facts); err != nil {
			return nil, err
		}
	}
	return &session, nil
}
