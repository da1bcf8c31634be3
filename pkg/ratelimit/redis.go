package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript runs the fixed-window check-and-increment atomically.
// KEYS[1] = counter key, ARGV[1] = max, ARGV[2] = window ms, ARGV[3] = now ms.
// Returns {count, window_start_ms, allowed}.
var hitScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local data = redis.call('HMGET', KEYS[1], 'count', 'start')
local count = tonumber(data[1])
local start = tonumber(data[2])
if count == nil or start == nil or now - start >= window then
    redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
    redis.call('PEXPIRE', KEYS[1], window)
    return {1, now, 1}
end
if count >= max then
    return {count, start, 0}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, start, 1}
`)

// RedisStore shares counters between replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "papro:ratelimit:"}
}

func (s *RedisStore) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Counter, error) {
	vals, err := hitScript.Run(ctx, s.client, []string{s.prefix + key},
		max, window.Milliseconds(), now.UnixMilli()).Int64Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("running rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Counter{}, fmt.Errorf("unexpected rate limit script reply: %v", vals)
	}

	return Counter{
		Count:       int(vals[0]),
		WindowStart: time.UnixMilli(vals[1]),
		Allowed:     vals[2] == 1,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
