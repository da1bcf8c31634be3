package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager("test-secret", 30*time.Minute, 7*24*time.Hour).WithClock(fixedClock(&now))

	token, issued, err := m.Issue(AdminSubject, "admin@example.com", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("expiresAt = %v, want %v", issued.ExpiresAt, now.Add(30*time.Minute))
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.AdminID != AdminSubject || got.Email != "admin@example.com" || got.RememberMe {
		t.Errorf("unexpected session: %+v", got)
	}
	if !got.LoginTime.Equal(now) {
		t.Errorf("loginTime = %v, want %v", got.LoginTime, now)
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager("test-secret", 30*time.Minute, 7*24*time.Hour).WithClock(fixedClock(&now))

	short, _, err := m.Issue(AdminSubject, "admin@example.com", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	long, _, err := m.Issue(AdminSubject, "admin@example.com", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	now = now.Add(29*time.Minute + 59*time.Second)
	if _, err := m.Verify(short); err != nil {
		t.Fatalf("session should still be valid: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := m.Verify(short); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expired session: got %v, want ErrInvalidSession", err)
	}
	if _, err := m.Verify(long); err != nil {
		t.Fatalf("remembered session should outlive the short window: %v", err)
	}

	now = now.Add(7 * 24 * time.Hour)
	if _, err := m.Verify(long); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("remembered session past its window: got %v", err)
	}
}

func TestSessionManager_RejectsTampering(t *testing.T) {
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager("test-secret", 30*time.Minute, 7*24*time.Hour).WithClock(fixedClock(&now))
	other := NewSessionManager("other-secret", 30*time.Minute, 7*24*time.Hour).WithClock(fixedClock(&now))

	token, _, err := m.Issue(AdminSubject, "admin@example.com", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	foreign, _, err := other.Issue(AdminSubject, "admin@example.com", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	flipped := parts[0] + "." + parts[1] + "." + string(sig)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"flipped signature", flipped},
		{"signed with another key", foreign},
		{"unsigned", parts[0] + "." + parts[1] + "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("got %v, want ErrInvalidSession", err)
			}
		})
	}
}
