package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/kv"
)

func newResetFixture() (*ResetTokens, *kv.MemoryStore, *time.Time) {
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	clock := fixedClock(&now)
	store := kv.NewMemoryStoreWithClock(clock)
	return NewResetTokens(store, 15*time.Minute).WithClock(clock), store, &now
}

func TestResetTokens_IssueAndValidate(t *testing.T) {
	ctx := context.Background()
	tokens, _, now := newResetFixture()

	rt, err := tokens.Issue(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(rt.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(rt.Token))
	}

	got, err := tokens.Validate(ctx, rt.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Email != "admin@example.com" {
		t.Errorf("email = %q", got.Email)
	}
	if m := got.MinutesRemaining(*now); m != 15 {
		t.Errorf("minutes remaining = %d, want 15", m)
	}

	*now = now.Add(10*time.Minute + 30*time.Second)
	got, err = tokens.Validate(ctx, rt.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m := got.MinutesRemaining(*now); m != 5 {
		t.Errorf("minutes remaining = %d, want 5 (rounded up)", m)
	}
}

func TestResetTokens_ExpiredThenNotFound(t *testing.T) {
	ctx := context.Background()
	tokens, _, now := newResetFixture()

	rt, err := tokens.Issue(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	*now = now.Add(16 * time.Minute)
	if _, err := tokens.Validate(ctx, rt.Token); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("first validate after TTL: got %v, want ErrResetTokenExpired", err)
	}
	if _, err := tokens.Validate(ctx, rt.Token); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("second validate: got %v, want ErrResetTokenNotFound", err)
	}
}

func TestResetTokens_ConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	tokens, _, _ := newResetFixture()

	rt, err := tokens.Issue(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := tokens.Consume(ctx, rt.Token)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.Email != "admin@example.com" {
		t.Errorf("email = %q", got.Email)
	}
	if _, err := tokens.Consume(ctx, rt.Token); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("second consume: got %v, want ErrResetTokenNotFound", err)
	}
	if _, err := tokens.Validate(ctx, rt.Token); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("validate after consume: got %v", err)
	}
}

func TestResetTokens_UnknownToken(t *testing.T) {
	tokens, _, _ := newResetFixture()
	for _, tok := range []string{"", "deadbeef"} {
		if _, err := tokens.Validate(context.Background(), tok); !errors.Is(err, ErrResetTokenNotFound) {
			t.Fatalf("Validate(%q): got %v", tok, err)
		}
	}
}

func TestResetTokens_IssuePurgesExpired(t *testing.T) {
	ctx := context.Background()
	tokens, store, now := newResetFixture()

	for i := 0; i < 3; i++ {
		if _, err := tokens.Issue(ctx, "admin@example.com"); err != nil {
			t.Fatalf("Issue: %v", err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("store holds %d tokens, want 3", store.Len())
	}

	*now = now.Add(20 * time.Minute)
	fresh, err := tokens.Issue(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d tokens after purge, want 1", store.Len())
	}
	if _, err := tokens.Validate(ctx, fresh.Token); err != nil {
		t.Fatalf("fresh token invalid: %v", err)
	}
}
