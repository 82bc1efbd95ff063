package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// CachedSessionRepository layers a short-lived Redis cache over the
// Postgres-backed session store. The database stays the sole authority:
// every write invalidates the cached copy, and cache failures fall through
// to the store.
type CachedSessionRepository struct {
	inner  SessionRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSessionRepository wraps a SessionRepository with a Redis
// read-through cache keyed by customer identifier.
func NewCachedSessionRepository(inner SessionRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedSessionRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSessionRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func activeSessionKey(customerID string) string {
	return "session:active:" + customerID
}

// Create stores the session and invalidates the customer's cached entry.
func (r *CachedSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := r.inner.Create(ctx, session); err != nil {
		return err
	}
	r.invalidate(ctx, session.CustomerID)
	return nil
}

// Update persists the session and invalidates the cached entry.
func (r *CachedSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if err := r.inner.Update(ctx, session); err != nil {
		return err
	}
	r.invalidate(ctx, session.CustomerID)
	return nil
}

// GetByID always goes to the store.
func (r *CachedSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.inner.GetByID(ctx, id)
}

// GetActiveByCustomer serves the cached session when fresh, otherwise reads
// through to the store and repopulates.
func (r *CachedSessionRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Session, error) {
	if r.client != nil {
		raw, err := r.client.Get(ctx, activeSessionKey(customerID)).Bytes()
		if err == nil {
			var session domain.Session
			if err := json.Unmarshal(raw, &session); err == nil {
				return &session, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			r.logger.Debug("session cache read failed", zap.Error(err))
		}
	}

	session, err := r.inner.GetActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if r.client != nil {
		if raw, err := json.Marshal(session); err == nil {
			if err := r.client.Set(ctx, activeSessionKey(customerID), raw, r.ttl).Err(); err != nil {
				r.logger.Debug("session cache write failed", zap.Error(err))
			}
		}
	}
	return session, nil
}

// MarkResolved resolves the session and invalidates the owning customer's
// cached entry. The cached ACTIVE copy must not outlive the resolve, so a
// failed pre-read is retried after the write before giving up.
func (r *CachedSessionRepository) MarkResolved(ctx context.Context, sessionID string) error {
	session, readErr := r.inner.GetByID(ctx, sessionID)
	if err := r.inner.MarkResolved(ctx, sessionID); err != nil {
		return err
	}
	if readErr != nil || session == nil {
		session, readErr = r.inner.GetByID(ctx, sessionID)
	}
	if readErr != nil || session == nil {
		r.logger.Warn("session cache not invalidated after resolve",
			zap.String("session_id", sessionID), zap.Error(readErr))
		return nil
	}
	r.invalidate(ctx, session.CustomerID)
	return nil
}

func (r *CachedSessionRepository) invalidate(ctx context.Context, customerID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, activeSessionKey(customerID)).Err(); err != nil {
		r.logger.Debug("session cache invalidate failed", zap.Error(err))
	}
}
