package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"fitnessweb/internal/observability"

	"github.com/redis/go-redis/v9"
)

// JSONStore keeps small JSON documents with a TTL.
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewJSONStore returns a Redis-backed store, or an in-process one when rdb is nil.
func NewJSONStore(rdb *redis.Client) JSONStore {
	if rdb == nil {
		return NewMemoryStore()
	}
	return &RedisStore{rdb: rdb}
}

// RedisStore is a JSONStore on Redis.
type RedisStore struct {
	rdb *redis.Client
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	ctx, span := observability.TraceRedisOperation(ctx, "get")
	defer span.End()

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *RedisStore) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, span := observability.TraceRedisOperation(ctx, "set")
	defer span.End()

	if err := s.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

const maxMemoryItems = 10000

type memoryItem struct {
	raw     []byte
	expires time.Time
}

// MemoryStore is a JSONStore held in process memory, used when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	item, ok := s.items[key]
	if ok && !item.expires.IsZero() && s.now().After(item.expires) {
		delete(s.items, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(item.raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) SetJSON(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	item := memoryItem{raw: b}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = item
	if len(s.items) > maxMemoryItems {
		s.pruneLocked()
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) pruneLocked() {
	now := s.now()
	for k, item := range s.items {
		if !item.expires.IsZero() && now.After(item.expires) {
			delete(s.items, k)
		}
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
