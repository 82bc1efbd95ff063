package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/extraction"
)

type fakeSessionRepo struct {
	sessions   map[string]*domain.Session
	failUpdate bool
	failCreate bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *fakeSessionRepo) put(s *domain.Session) {
	cp := *s
	cp.Facts = s.Facts.Clone()
	r.sessions[s.ID] = &cp
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	if r.failCreate {
		return errors.New("create failed")
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	r.put(session)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *domain.Session) error {
	if r.failUpdate {
		return errors.New("update failed")
	}
	if _, ok := r.sessions[session.ID]; !ok {
		return pgx.ErrNoRows
	}
	session.UpdatedAt = time.Now()
	r.put(session)
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	cp.Facts = s.Facts.Clone()
	return &cp, nil
}

func (r *fakeSessionRepo) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Session, error) {
	for _, s := range r.sessions {
		if s.CustomerID == customerID && s.Status != domain.SessionStatusResolved {
			cp := *s
			cp.Facts = s.Facts.Clone()
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSessionRepo) MarkResolved(ctx context.Context, sessionID string) error {
	s, ok := r.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Status = domain.SessionStatusResolved
	return nil
}

type fakeMessageRepo struct {
	items []domain.Message
	next  int
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.next++
	msg.ID = fmt.Sprintf("msg-%d", r.next)
	msg.CreatedAt = time.Now()
	r.items = append(r.items, *msg)
	return nil
}

func (r *fakeMessageRepo) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	all, _ := r.ListBySession(ctx, sessionID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.items {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) bySession(sessionID string) []domain.Message {
	out, _ := r.ListBySession(context.Background(), sessionID)
	return out
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	next    int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if t, err := r.GetOpenBySession(ctx, ticket.SessionID); err == nil && t != nil {
		return errors.New("duplicate open ticket for session")
	}
	r.next++
	ticket.ID = fmt.Sprintf("ticket-%d", r.next)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTicketRepo) GetOpenBySession(ctx context.Context, sessionID string) (*domain.Ticket, error) {
	for _, t := range r.tickets {
		if t.SessionID == sessionID && !t.Status.IsFinal() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.tickets {
		if !t.Status.IsFinal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

type fakeExtractor struct {
	result *extraction.Result
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, history []domain.Message, contextNote string) (*extraction.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	if f.result.Extracted != nil {
		cp.Extracted = make(map[string]any, len(f.result.Extracted))
		for k, v := range f.result.Extracted {
			cp.Extracted[k] = v
		}
	}
	return &cp, nil
}
