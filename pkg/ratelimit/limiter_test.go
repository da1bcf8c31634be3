package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)}
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, int, time.Duration, time.Time) (Counter, error) {
	return Counter{}, errors.New("store down")
}
func (failingStore) Reset(context.Context, string) error { return errors.New("store down") }

func TestLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewWithClock(NewMemoryStore(), clock.Now)
	p := Policy{Name: "login", MaxAttempts: 5, Window: 15 * time.Minute}

	for i := 1; i <= 5; i++ {
		res := l.Check(ctx, "10.0.0.1", p)
		if !res.Allowed {
			t.Fatalf("attempt %d: expected allowed", i)
		}
		if res.Remaining != 5-i {
			t.Errorf("attempt %d: remaining = %d, want %d", i, res.Remaining, 5-i)
		}
	}

	clock.Advance(5 * time.Minute)
	res := l.Check(ctx, "10.0.0.1", p)
	if res.Allowed {
		t.Fatal("6th attempt inside window should be rejected")
	}
	if res.RetryAfter != 10*time.Minute {
		t.Errorf("retry after = %s, want 10m", res.RetryAfter)
	}

	// still rejected right before the window closes
	clock.Advance(10*time.Minute - time.Second)
	if l.Check(ctx, "10.0.0.1", p).Allowed {
		t.Fatal("attempt before window end should be rejected")
	}

	clock.Advance(time.Second)
	res = l.Check(ctx, "10.0.0.1", p)
	if !res.Allowed {
		t.Fatal("attempt after window elapsed should be allowed")
	}
	if res.Remaining != 4 {
		t.Errorf("remaining after reset = %d, want 4", res.Remaining)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewWithClock(NewMemoryStore(), clock.Now)
	p := Policy{Name: "reset", MaxAttempts: 1, Window: time.Hour}

	if !l.Check(ctx, "a", p).Allowed {
		t.Fatal("first attempt for a should be allowed")
	}
	if l.Check(ctx, "a", p).Allowed {
		t.Fatal("second attempt for a should be rejected")
	}
	if !l.Check(ctx, "b", p).Allowed {
		t.Fatal("other identity should not be affected")
	}
	other := Policy{Name: "login", MaxAttempts: 1, Window: time.Hour}
	if !l.Check(ctx, "a", other).Allowed {
		t.Fatal("other policy should not be affected")
	}
}

func TestLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewWithClock(NewMemoryStore(), clock.Now)
	p := PolicyLogin

	for i := 0; i < p.MaxAttempts; i++ {
		l.Check(ctx, "ip", p)
	}
	if err := l.Allow(ctx, "ip", p); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}

	if err := l.Reset(ctx, "ip", p); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.Allow(ctx, "ip", p); err != nil {
		t.Fatalf("expected allowed after reset, got %v", err)
	}
}

func TestLimiter_AllowReturnsRetryAfter(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	l := NewWithClock(NewMemoryStore(), clock.Now)
	p := Policy{Name: "reset", MaxAttempts: 1, Window: time.Hour}

	if err := l.Allow(ctx, "ip", p); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	clock.Advance(20 * time.Minute)

	err := l.Allow(ctx, "ip", p)
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *LimitedError, got %v", err)
	}
	if limited.RetryAfter != 40*time.Minute {
		t.Errorf("retry after = %s, want 40m", limited.RetryAfter)
	}
}

func TestLimiter_FailsOpen(t *testing.T) {
	l := New(failingStore{})
	if !l.Check(context.Background(), "ip", PolicyLogin).Allowed {
		t.Fatal("store failure should allow the request")
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	clock := newClock()
	s := NewMemoryStoreWithClock(clock.Now)
	l := NewWithClock(s, clock.Now)
	ctx := context.Background()

	l.Check(ctx, "old", PolicyAvailability)
	clock.Advance(45 * time.Second)
	l.Check(ctx, "fresh", PolicyAvailability)

	// The wall clock is far from the test clock; only the injected one counts.
	if n, _ := s.CleanupExpired(ctx); n != 0 {
		t.Fatalf("removed %d counters before any window ended", n)
	}

	clock.Advance(30 * time.Second)
	n, err := s.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d counters, want 1", n)
	}
	if res := l.Check(ctx, "fresh", PolicyAvailability); res.Remaining != PolicyAvailability.MaxAttempts-2 {
		t.Fatalf("fresh window lost its count: remaining %d", res.Remaining)
	}
}

func TestMiddleware(t *testing.T) {
	clock := newClock()
	l := NewWithClock(NewMemoryStore(), clock.Now)
	p := Policy{Name: "booking", MaxAttempts: 2, Window: 15 * time.Minute}

	h := Middleware(l, p, func(r *http.Request) string { return "1.2.3.4" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	tests := []struct {
		name      string
		status    int
		remaining string
	}{
		{"first", http.StatusNoContent, "1"},
		{"second", http.StatusNoContent, "0"},
		{"third is limited", http.StatusTooManyRequests, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/booking", nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
				t.Errorf("X-RateLimit-Limit = %q", got)
			}
			if got := rec.Header().Get("X-RateLimit-Remaining"); got != tt.remaining {
				t.Errorf("X-RateLimit-Remaining = %q, want %q", got, tt.remaining)
			}
			if tt.status == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "900" {
				t.Errorf("Retry-After = %q, want 900", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{BackendMemory, false},
		{BackendRedis, true},
		{BackendPostgres, true},
		{"memcached", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			_, err := NewStore(tt.backend, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStore(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
		})
	}
}

func TestRunCleanerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunCleaner(ctx, NewMemoryStore(), time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunCleaner: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunCleaner did not stop")
	}
}
