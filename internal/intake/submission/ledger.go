package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"internship-intake/internal/common/database"
)

// Entry records an acknowledged phase.
type Entry struct {
	Phase     Phase     `json:"phase"`
	ProfileID string    `json:"profileId,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// Ledger remembers which idempotency keys the platform has acknowledged.
type Ledger interface {
	Lookup(ctx context.Context, key string) (Entry, bool, error)
	Record(ctx context.Context, key string, e Entry) error
}

const ledgerPrefix = "intake:saga:"

type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	val, err := l.client.Get(ctx, ledgerPrefix+key).Bytes()
	if database.IsMiss(err) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger lookup failed: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, false, fmt.Errorf("ledger entry corrupt: %w", err)
	}
	return e, true, nil
}

func (l *RedisLedger) Record(ctx context.Context, key string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, ledgerPrefix+key, data, l.ttl).Err()
}

type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (l *MemoryLedger) Lookup(_ context.Context, key string) (Entry, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	return e, ok, nil
}

func (l *MemoryLedger) Record(_ context.Context, key string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = e
	return nil
}
