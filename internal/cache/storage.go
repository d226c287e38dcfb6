package cache

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	redisstore "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

// Storage is the Fiber storage of the session and CSRF middleware: the
// gofiber Redis store over the shared client, with keys namespaced by prefix.
type Storage struct {
	*redisstore.Storage
	rdb    *redis.Client
	prefix string
}

var _ fiber.Storage = (*Storage)(nil)

// NewStorage returns a fiber.Storage over rdb. Keys are namespaced with prefix.
func NewStorage(rdb *redis.Client, prefix string) *Storage {
	return &Storage{
		Storage: redisstore.NewFromConnection(rdb),
		rdb:     rdb,
		prefix:  prefix,
	}
}

// Get returns nil, nil when the key does not exist.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	return s.Storage.Get(s.prefix + key)
}

// Set stores val under key; empty keys or values are ignored.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.Storage.Set(s.prefix+key, val, exp)
}

// Delete removes key; a missing key is not an error.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.Storage.Delete(s.prefix + key)
}

// Reset removes every key under the prefix. The wrapped store would flush
// the whole database, which also holds snapshots and rate limits.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// Close leaves the shared client open; the server closes it on shutdown.
func (s *Storage) Close() error {
	return nil
}
