// Package cache provides the console's response cache: entries are keyed
// by (resource, query) and invalidated explicitly after any mutation, so
// refresh-after-mutate is enforced by the service rather than by call-site
// discipline.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "console:"

// Store caches normalized list responses.
type Store interface {
	// Get loads the entry into dest, reporting whether it existed.
	Get(ctx context.Context, resource, query string, dest any) (bool, error)
	// Set stores the entry with a TTL.
	Set(ctx context.Context, resource, query string, value any, ttl time.Duration) error
	// Invalidate drops every entry for the resource, regardless of query.
	Invalidate(ctx context.Context, resource string) error
}

func entryKey(resource, query string) string {
	return keyPrefix + resource + ":" + query
}

// RedisStore is the production Store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, resource, query string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, entryKey(resource, query)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, resource, query string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, entryKey(resource, query), data, ttl).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, resource string) error {
	pattern := keyPrefix + resource + ":*"
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, resource, query string, dest any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[entryKey(resource, query)]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, resource, query string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[entryKey(resource, query)] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, resource string) error {
	prefix := keyPrefix + resource + ":"
	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
	return nil
}
