package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

type stubSessionStore struct {
	sessions    map[string]*domain.Session
	getByIDErrs int
	activeCalls int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: map[string]*domain.Session{}}
}

func (s *stubSessionStore) Create(ctx context.Context, session *domain.Session) error {
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *stubSessionStore) Update(ctx context.Context, session *domain.Session) error {
	if _, ok := s.sessions[session.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *stubSessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if s.getByIDErrs > 0 {
		s.getByIDErrs--
		return nil, errors.New("store offline")
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *session
	return &cp, nil
}

func (s *stubSessionStore) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Session, error) {
	s.activeCalls++
	for _, session := range s.sessions {
		if session.CustomerID == customerID && session.Status != domain.SessionStatusResolved {
			cp := *session
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubSessionStore) MarkResolved(ctx context.Context, sessionID string) error {
	session, ok := s.sessions[sessionID]
	if !ok {
		return pgx.ErrNoRows
	}
	session.Status = domain.SessionStatusResolved
	return nil
}

func cacheFixture(t *testing.T) (*CachedSessionRepository, *stubSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newStubSessionStore()
	return NewCachedSessionRepository(store, client, time.Minute, zap.NewNop()), store, mr
}

func TestCachedGetActiveServesFromCache(t *testing.T) {
	repo, store, _ := cacheFixture(t)
	_ = store.Create(context.Background(), &domain.Session{
		ID: "sess-1", CustomerID: "cust-1",
		Status: domain.SessionStatusActive, Stage: domain.StageIdentity,
	})

	if _, err := repo.GetActiveByCustomer(context.Background(), "cust-1"); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := repo.GetActiveByCustomer(context.Background(), "cust-1"); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if store.activeCalls != 1 {
		t.Fatalf("store reads = %d, want 1 (second read served from cache)", store.activeCalls)
	}
}

func TestCachedUpdateInvalidatesEntry(t *testing.T) {
	repo, store, mr := cacheFixture(t)
	session := &domain.Session{
		ID: "sess-1", CustomerID: "cust-1",
		Status: domain.SessionStatusActive, Stage: domain.StageIdentity,
	}
	_ = store.Create(context.Background(), session)
	if _, err := repo.GetActiveByCustomer(context.Background(), "cust-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if !mr.Exists(activeSessionKey("cust-1")) {
		t.Fatal("cache entry not written")
	}

	session.Stage = domain.StageLocation
	if err := repo.Update(context.Background(), session); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if mr.Exists(activeSessionKey("cust-1")) {
		t.Fatal("cache entry survived an update")
	}
}

func TestMarkResolvedInvalidatesDespitePreReadFailure(t *testing.T) {
	repo, store, mr := cacheFixture(t)
	_ = store.Create(context.Background(), &domain.Session{
		ID: "sess-1", CustomerID: "cust-1",
		Status: domain.SessionStatusActive, Stage: domain.StageEscalated,
	})
	if _, err := repo.GetActiveByCustomer(context.Background(), "cust-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	// The lookup preceding the resolve fails; the cached ACTIVE copy must
	// still be dropped or the next read resurrects a resolved session.
	store.getByIDErrs = 1
	if err := repo.MarkResolved(context.Background(), "sess-1"); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}
	if store.sessions["sess-1"].Status != domain.SessionStatusResolved {
		t.Fatal("session not resolved in the store")
	}
	if mr.Exists(activeSessionKey("cust-1")) {
		t.Fatal("stale cached session survived the resolve")
	}
}
