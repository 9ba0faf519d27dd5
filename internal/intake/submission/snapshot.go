package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"internship-intake/internal/common/database"
	"internship-intake/internal/models"
)

// SnapshotStore parks the snapshot of a failed submission under its saga
// ID so a background re-drive can pick it up. Job payloads carry only the
// saga ID.
type SnapshotStore interface {
	Put(ctx context.Context, sagaID string, snap models.IntakeSnapshot) error
	Get(ctx context.Context, sagaID string) (models.IntakeSnapshot, bool, error)
	Delete(ctx context.Context, sagaID string) error
}

const snapshotPrefix = "intake:redrive:"

type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{client: client, ttl: ttl}
}

func (s *RedisSnapshots) Put(ctx context.Context, sagaID string, snap models.IntakeSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotPrefix+sagaID, data, s.ttl).Err()
}

func (s *RedisSnapshots) Get(ctx context.Context, sagaID string) (models.IntakeSnapshot, bool, error) {
	val, err := s.client.Get(ctx, snapshotPrefix+sagaID).Bytes()
	if database.IsMiss(err) {
		return models.IntakeSnapshot{}, false, nil
	}
	if err != nil {
		return models.IntakeSnapshot{}, false, fmt.Errorf("snapshot lookup failed: %w", err)
	}
	var snap models.IntakeSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return models.IntakeSnapshot{}, false, fmt.Errorf("snapshot corrupt: %w", err)
	}
	return snap, true, nil
}

func (s *RedisSnapshots) Delete(ctx context.Context, sagaID string) error {
	return s.client.Del(ctx, snapshotPrefix+sagaID).Err()
}

type MemorySnapshots struct {
	mu    sync.RWMutex
	snaps map[string]models.IntakeSnapshot
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{snaps: make(map[string]models.IntakeSnapshot)}
}

func (s *MemorySnapshots) Put(_ context.Context, sagaID string, snap models.IntakeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[sagaID] = snap
	return nil
}

func (s *MemorySnapshots) Get(_ context.Context, sagaID string) (models.IntakeSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[sagaID]
	return snap, ok, nil
}

func (s *MemorySnapshots) Delete(_ context.Context, sagaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sagaID)
	return nil
}
