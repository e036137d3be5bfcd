// Package redis implements the key-value persistence port on Redis.
package redis

import (
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

const keyPrefix = "doccompanion:"

// Store persists library state in Redis under a fixed namespace prefix.
type Store struct {
	client *goredis.Client
}

// New connects a Store from a redis:// URL.
func New(redisURL string) (*Store, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{client: goredis.NewClient(opt)}, nil
}

// NewFromClient wraps an existing client, used by tests running miniredis.
func NewFromClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Get returns the value for key, or domain.ErrNotFound when absent.
func (s *Store) Get(ctx domain.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value under key with no expiry.
func (s *Store) Set(ctx domain.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx domain.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping reports backend reachability for readiness probes.
func (s *Store) Ping(ctx domain.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
