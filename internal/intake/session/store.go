package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"internship-intake/internal/common/database"
	"internship-intake/internal/common/errors"
)

const keyPrefix = "intake:session:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, sc Context, ttl time.Duration) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+sc.SessionID, data, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Context, error) {
	val, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if database.IsMiss(err) {
		return Context{}, errors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return Context{}, errors.NewCacheUnavailableError(err)
	}
	var sc Context
	if err := json.Unmarshal(val, &sc); err != nil {
		return Context{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sc, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}

// MemoryStore keeps sessions in process, for tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Context
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Context)}
}

func (s *MemoryStore) Save(_ context.Context, sc Context, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sc.SessionID] = sc
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.sessions[sessionID]
	if !ok {
		return Context{}, errors.NewSessionNotFoundError(sessionID)
	}
	return sc, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
