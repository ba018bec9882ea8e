package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/redis/go-redis/v9"
)

// SessionRepository persists one demo session blob per browser. The redis
// TTL matches the session's absolute expiry; expiry-on-read enforcement is
// the auth service's job.
type SessionRepository interface {
	Get(ctx context.Context, browserID string) (*model.Session, error)
	Save(ctx context.Context, browserID string, session *model.Session) error
	Delete(ctx context.Context, browserID string) error
}

type sessionRepo struct {
	rdb *redis.Client
}

func NewSessionRepo(rdb *redis.Client) SessionRepository {
	return &sessionRepo{rdb: rdb}
}

func sessionKey(browserID string) string {
	return "session:" + browserID
}

// Get returns the stored session, or nil when none exists.
func (r *sessionRepo) Get(ctx context.Context, browserID string) (*model.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(browserID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		_ = r.rdb.Del(ctx, sessionKey(browserID)).Err()
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) Save(ctx context.Context, browserID string, session *model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	if err := r.rdb.Set(ctx, sessionKey(browserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, browserID string) error {
	if err := r.rdb.Del(ctx, sessionKey(browserID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
