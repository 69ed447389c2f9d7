package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore records each user's last announced presence status so the
// admin surface can query it. Entries expire on their own when a client
// stops refreshing; a clean disconnect removes them immediately.
type PresenceStore interface {
	Set(ctx context.Context, userID, status string) error
	Clear(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (string, error)
}

// RedisPresence keeps presence in redis with a TTL, surviving restarts of
// the API process and readable by other tooling.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPresence constructs the store.
func NewRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl}
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

func (p *RedisPresence) Set(ctx context.Context, userID, status string) error {
	return p.client.Set(ctx, presenceKey(userID), status, p.ttl).Err()
}

func (p *RedisPresence) Clear(ctx context.Context, userID string) error {
	return p.client.Del(ctx, presenceKey(userID)).Err()
}

func (p *RedisPresence) Get(ctx context.Context, userID string) (string, error) {
	status, err := p.client.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return "offline", nil
	}
	return status, err
}

// MemoryPresence is a map-backed store for tests and redis-less setups.
type MemoryPresence struct {
	mu       sync.RWMutex
	statuses map[string]string
}

// NewMemoryPresence constructs the store.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{statuses: make(map[string]string)}
}

func (p *MemoryPresence) Set(_ context.Context, userID, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[userID] = status
	return nil
}

func (p *MemoryPresence) Clear(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.statuses, userID)
	return nil
}

func (p *MemoryPresence) Get(_ context.Context, userID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if status, ok := p.statuses[userID]; ok {
		return status, nil
	}
	return "offline", nil
}
