// Package kv is a small expiring key/value abstraction used for state that
// must be shared between replicas when Redis is configured, and kept in
// process otherwise.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl <= 0 keeps the key until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take atomically returns and deletes key.
	Take(ctx context.Context, key string) ([]byte, error)
	// Scan calls fn for every live key with the given prefix. Returning an
	// error from fn stops the scan and is returned.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
}

// New picks the store for backend ("memory" or "redis"). Redis keys are
// prefixed with namespace.
func New(backend string, client *redis.Client, namespace string) (Store, error) {
	switch backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("kv backend %q needs a redis client", backend)
		}
		return NewRedisStore(client, namespace), nil
	default:
		return nil, fmt.Errorf("unknown kv backend %q", backend)
	}
}
