package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// ErrSessionNotFound is returned for unknown, expired or corrupt sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps operator sessions in redis.
type SessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSessionStore returns a redis-backed session store.
func NewSessionStore(client redis.Cmdable, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return fmt.Sprintf("dashboard:session:%s", id)
}

// Save stores the session, resetting its TTL.
func (s *SessionStore) Save(ctx context.Context, session models.AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err()
}

// Get loads a session. Entries that no longer decode are dropped.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.AuthSession, error) {
	result, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session models.AuthSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		_ = s.client.Del(ctx, s.key(id)).Err()
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Touch extends the session TTL.
func (s *SessionStore) Touch(ctx context.Context, id string) error {
	return s.client.Expire(ctx, s.key(id), s.ttl).Err()
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
