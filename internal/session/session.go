// Package session provides the per-client ephemeral key/value state used to
// carry multi-step verification flows between requests. Values are addressed by
// a session ID minted into a cookie by the handler layer and expire on their
// own; nothing here ever reaches the durable store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the contract the flow controller needs from session storage. Unlike
// the read cache, errors are real errors: a lost session write breaks a flow.
type Store interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, sid, key string) error
	// Destroy removes every key held for the session.
	Destroy(ctx context.Context, sid string) error
}

// RedisStore implements Store on Redis, one key per (session, name) pair so
// per-key TTLs work naturally.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Store over an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sid, key string) string {
	return fmt.Sprintf("session:%s:%s", sid, key)
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) ([]byte, error) {
	res, err := s.client.Get(ctx, sessionKey(sid, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return res, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sid, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid, key string) error {
	if err := s.client.Del(ctx, sessionKey(sid, key)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// Destroy scans out all keys under the session prefix and deletes them.
func (s *RedisStore) Destroy(ctx context.Context, sid string) error {
	pattern := fmt.Sprintf("session:%s:*", sid)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session destroy scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}
