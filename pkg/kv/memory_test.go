package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStoreWithClock(func() time.Time { return now })

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "a")
		if err != nil || string(got) != "1" {
			t.Fatalf("Get = %q, %v", got, err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("expired key is hidden", func(t *testing.T) {
		s.Set(ctx, "short", []byte("x"), time.Second)
		now = now.Add(2 * time.Second)
		if _, err := s.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("take deletes", func(t *testing.T) {
		s.Set(ctx, "once", []byte("y"), 0)
		got, err := s.Take(ctx, "once")
		if err != nil || string(got) != "y" {
			t.Fatalf("Take = %q, %v", got, err)
		}
		if _, err := s.Take(ctx, "once"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second Take should miss, got %v", err)
		}
	})

	t.Run("scan by prefix", func(t *testing.T) {
		s.Set(ctx, "p:1", []byte("1"), 0)
		s.Set(ctx, "p:2", []byte("2"), 0)
		s.Set(ctx, "q:1", []byte("3"), 0)

		seen := map[string]string{}
		err := s.Scan(ctx, "p:", func(k string, v []byte) error {
			seen[k] = string(v)
			return s.Delete(ctx, k)
		})
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(seen) != 2 || seen["p:1"] != "1" || seen["p:2"] != "2" {
			t.Fatalf("unexpected scan result: %v", seen)
		}
		if _, err := s.Get(ctx, "p:1"); !errors.Is(err, ErrNotFound) {
			t.Fatal("delete from inside scan should work")
		}
	})
}
