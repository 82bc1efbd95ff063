package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetOpenBySession returns the most recent ticket for the session whose
	// status is not final, or pgx.ErrNoRows.
	GetOpenBySession(ctx context.Context, sessionID string) (*domain.Ticket, error)
	ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, session_id, customer_id, source, reason, priority, status,
       customer_name, phone, vehicle_model, snapshot, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	snapshot, err := json.Marshal(ticket.Snapshot)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (external_key, session_id, customer_id, source, reason, priority, status, customer_name, phone, vehicle_model, snapshot)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.SessionID,
		ticket.CustomerID,
		ticket.Source,
		ticket.Reason,
		ticket.Priority,
		ticket.Status,
		ticket.CustomerName,
		ticket.Phone,
		ticket.VehicleModel,
		snapshot,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetOpenBySession(ctx context.Context, sessionID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE session_id=$1 AND status NOT IN ('RESOLVED','CLOSED')
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, sessionID)
}

func (r *ticketRepository) ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status IN ('OPEN','IN_PROGRESS','DISPATCHED','ON_SITE')
        ORDER BY updated_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + ticketColumns
	rows, err := r.pool.Query(ctx, query, status, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanTicket(rows)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	return scanTicket(rows)
}

func scanTicket(rows pgx.Rows) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		rawSnapshot []byte
	)
	if err := rows.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.SessionID,
		&ticket.CustomerID,
		&ticket.Source,
		&ticket.Reason,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CustomerName,
		&ticket.Phone,
		&ticket.VehicleModel,
		&rawSnapshot,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Snapshot = map[string]any{}
	if len(rawSnapshot) > 0 {
		if err := json.Unmarshal(rawSnapshot, &ticket.Snapshot); err != nil {
			return nil, err
		}
	}
	return &ticket, nil
}
