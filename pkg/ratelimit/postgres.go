package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps counters in the rate_limits table. Keys are hashed so
// client IPs are not stored in clear.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Cleaner = (*PostgresStore)(nil)
)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

func (s *PostgresStore) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Counter, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// The count stops one past max, so count <= max means the hit was admitted.
	const q = `
		INSERT INTO rate_limits AS rl (rl_key, count, window_start, expires_at)
		VALUES ($1, 1, $2, $5)
		ON CONFLICT (rl_key) DO UPDATE SET
			count = CASE
				WHEN rl.window_start <= $3 THEN 1
				WHEN rl.count > $4 THEN rl.count
				ELSE rl.count + 1
			END,
			window_start = CASE
				WHEN rl.window_start <= $3 THEN $2
				ELSE rl.window_start
			END,
			expires_at = CASE
				WHEN rl.window_start <= $3 THEN $5
				ELSE rl.expires_at
			END
		RETURNING count, window_start`

	var c Counter
	err := s.pool.QueryRow(ctx, q, hashKey(key), now, now.Add(-window), max, now.Add(window)).
		Scan(&c.Count, &c.WindowStart)
	if err != nil {
		return Counter{}, fmt.Errorf("upserting rate limit: %w", err)
	}
	c.Allowed = c.Count <= max
	if c.Count > max {
		c.Count = max
	}
	return c, nil
}

func (s *PostgresStore) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `DELETE FROM rate_limits WHERE rl_key = $1`, hashKey(key))
	return err
}

func (s *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM rate_limits WHERE expires_at < now()`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
