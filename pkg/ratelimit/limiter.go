// Package ratelimit implements fixed-window attempt counters keyed by
// (identity, policy). A window starts on the first attempt and resets fully
// once it has elapsed.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
)

var ErrLimited = errors.New("rate limit exceeded")

// LimitedError carries how long the caller has to wait.
type LimitedError struct {
	Policy     string
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Policy, e.RetryAfter.Round(time.Second))
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrLimited
}

type Policy struct {
	Name        string
	MaxAttempts int
	Window      time.Duration
}

var (
	PolicyLogin        = Policy{Name: "login", MaxAttempts: 5, Window: 15 * time.Minute}
	PolicyReset        = Policy{Name: "reset", MaxAttempts: 3, Window: time.Hour}
	PolicyBooking      = Policy{Name: "booking", MaxAttempts: 5, Window: 15 * time.Minute}
	PolicyAvailability = Policy{Name: "availability", MaxAttempts: 60, Window: time.Minute}
	PolicyGeneral      = Policy{Name: "general", MaxAttempts: 100, Window: 15 * time.Minute}
)

// Counter is the state of one key after a hit.
type Counter struct {
	Count       int
	WindowStart time.Time
	Allowed     bool
}

// Store performs the read-modify-write of a single counter atomically.
type Store interface {
	Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Counter, error)
	Reset(ctx context.Context, key string) error
}

// Cleaner is implemented by stores that need expired counters removed
// periodically.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return NewWithClock(store, time.Now)
}

func NewWithClock(store Store, now func() time.Time) *Limiter {
	return &Limiter{store: store, now: now}
}

func key(identity string, p Policy) string {
	return p.Name + ":" + identity
}

// Check records an attempt. Store failures are logged and the attempt is
// allowed.
func (l *Limiter) Check(ctx context.Context, identity string, p Policy) Result {
	now := l.now()

	c, err := l.store.Hit(ctx, key(identity, p), p.MaxAttempts, p.Window, now)
	if err != nil {
		logger.WarnContext(ctx, "Rate limit store unavailable, allowing request", "error", err, "policy", p.Name)
		return Result{Allowed: true, Limit: p.MaxAttempts, Remaining: p.MaxAttempts - 1, ResetAt: now.Add(p.Window)}
	}

	resetAt := c.WindowStart.Add(p.Window)
	res := Result{
		Allowed:   c.Allowed,
		Limit:     p.MaxAttempts,
		Remaining: max(p.MaxAttempts-c.Count, 0),
		ResetAt:   resetAt,
	}
	if !c.Allowed {
		res.Remaining = 0
		res.RetryAfter = resetAt.Sub(now)
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res
}

// Allow wraps Check and returns a *LimitedError when the attempt is rejected.
func (l *Limiter) Allow(ctx context.Context, identity string, p Policy) error {
	res := l.Check(ctx, identity, p)
	if !res.Allowed {
		return &LimitedError{Policy: p.Name, RetryAfter: res.RetryAfter}
	}
	return nil
}

// Reset clears the counter, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, identity string, p Policy) error {
	if err := l.store.Reset(ctx, key(identity, p)); err != nil {
		return fmt.Errorf("resetting %s limiter: %w", p.Name, err)
	}
	return nil
}
