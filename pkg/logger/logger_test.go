package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func capture(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(&buf, level, format))
	t.Cleanup(func() { SetDefault(prev) })
	return &buf
}

func TestContextAttributes(t *testing.T) {
	buf := capture(t, "info", "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, ServiceKey, "bookings")
	InfoContext(ctx, "Booking created", "booking_id", 7)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not JSON: %v: %s", err, buf.String())
	}
	if entry["request_id"] != "req-1" || entry["service"] != "bookings" || entry["msg"] != "Booking created" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry["client_ip"]; ok {
		t.Fatal("unset context key was logged")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"", false, true},
		{"bogus", false, true},
		{"warn", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := capture(t, tt.level, "json")
			Debug("debug line")
			Info("info line")

			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Fatalf("debug logged = %v", got)
			}
			if got := strings.Contains(buf.String(), "info line"); got != tt.wantInfo {
				t.Fatalf("info logged = %v", got)
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	buf := capture(t, "info", "text")
	Warn("Slow query", "ms", 120)

	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "ms=120") {
		t.Fatalf("text output = %q", buf.String())
	}
}
