package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingMarker is stored while the first request holding a key is still running.
const PendingMarker = "pending"

// IdempotencyStore remembers which order a checkout key produced.
type IdempotencyStore interface {
	// Reserve claims key. It returns false when the key is already held,
	// either by a finished order or by a request still in flight.
	Reserve(ctx context.Context, key string) (bool, error)
	// Lookup returns the order id stored for key, PendingMarker, or "" when unknown.
	Lookup(ctx context.Context, key string) (string, error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps keys in redis with a TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (r *RedisIdempotencyStore) getKey(key string) string {
	return "idem:checkout:" + key
}

func (r *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.getKey(key), PendingMarker, r.ttl).Result()
}

func (r *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.getKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	return r.client.Set(ctx, r.getKey(key), orderID, r.ttl).Err()
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.getKey(key)).Err()
}

// MemoryIdempotencyStore is the in-process fallback used when no redis is configured.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// get must be called with mu held.
func (m *MemoryIdempotencyStore) get(key string) (string, bool) {
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, true
}

func (m *MemoryIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.get(key); ok {
		return false, nil
	}
	m.entries[key] = memoryEntry{value: PendingMarker, expiresAt: m.now().Add(m.ttl)}
	return true, nil
}

func (m *MemoryIdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := m.get(key)
	return v, nil
}

func (m *MemoryIdempotencyStore) Complete(ctx context.Context, key, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: orderID, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
