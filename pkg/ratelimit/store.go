package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/papro-bookings/pkg/logger"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// NewStore picks the counter store for backend. The client or pool for the
// chosen backend must be non-nil.
func NewStore(backend string, client *redis.Client, pool *pgxpool.Pool) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("rate limit backend %q needs a redis client", backend)
		}
		return NewRedisStore(client), nil
	case BackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("rate limit backend %q needs a database pool", backend)
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}

// RunCleaner removes expired counters every interval until ctx is done.
// Stores without expiry of their own are the only ones that need it.
func RunCleaner(ctx context.Context, store Store, every time.Duration) error {
	c, ok := store.(Cleaner)
	if !ok {
		return nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := c.CleanupExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "Rate limit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "Rate limit counters expired", "removed", n)
			}
		}
	}
}
