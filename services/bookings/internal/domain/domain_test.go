package domain

import (
	"errors"
	"testing"
	"time"
)

func TestMonth_LastDay(t *testing.T) {
	tests := []struct {
		month string
		last  string
	}{
		{"2025-01", "2025-01-31"},
		{"2025-02", "2025-02-28"},
		{"2024-02", "2024-02-29"},
		{"2025-04", "2025-04-30"},
		{"2025-12", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			m, err := ParseMonth(tt.month)
			if err != nil {
				t.Fatalf("ParseMonth: %v", err)
			}
			if got := FormatDate(m.LastDay()); got != tt.last {
				t.Fatalf("LastDay = %s, want %s", got, tt.last)
			}
			if got := FormatDate(m.FirstDay()); got != tt.month+"-01" {
				t.Fatalf("FirstDay = %s", got)
			}
		})
	}
}

func TestParseMonth_Rejects(t *testing.T) {
	for _, s := range []string{"", "2025-6", "2025-13", "2025/06", "2025-06-01", "june"} {
		if _, err := ParseMonth(s); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q) = %v, want ErrInvalidMonth", s, err)
		}
	}
}

func TestMonth_Contains(t *testing.T) {
	m, _ := ParseMonth("2025-06")
	in, _ := ParseDate("2025-06-30")
	out, _ := ParseDate("2025-07-01")
	before, _ := ParseDate("2025-05-31")
	if !m.Contains(in) || m.Contains(out) || m.Contains(before) {
		t.Fatal("Contains boundaries wrong")
	}
	if MonthOf(time.Date(2025, 6, 14, 23, 0, 0, 0, time.UTC)).String() != "2025-06" {
		t.Fatal("MonthOf wrong")
	}
}

func TestNormalizeSlots(t *testing.T) {
	got, err := NormalizeSlots([]string{"11:00", "09:00", "11:00", "13:30"})
	if err != nil {
		t.Fatalf("NormalizeSlots: %v", err)
	}
	want := []string{"09:00", "11:00", "13:30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	var ve *ValidationError
	if _, err := NormalizeSlots([]string{"9:00"}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := NormalizeSlots([]string{"24:00"}); err == nil {
		t.Fatal("24:00 accepted")
	}
}

func TestBookableSlots(t *testing.T) {
	kept, dropped := BookableSlots([]string{"14:00", "9:00", "09:15", "14:00", "noon"})

	if len(kept) != 2 || kept[0] != "09:15" || kept[1] != "14:00" {
		t.Fatalf("kept = %v, want [09:15 14:00]", kept)
	}
	if len(dropped) != 2 || dropped[0] != "9:00" || dropped[1] != "noon" {
		t.Fatalf("dropped = %v, want [9:00 noon]", dropped)
	}
}

func TestBookingRequest_Validate(t *testing.T) {
	valid := func() BookingRequest {
		return BookingRequest{
			Service: "Bridal-White ",
			Name:    "  Ada   Lovelace ",
			Email:   " Ada@Example.com",
			Phone:   "+44 7700 900123",
			Date:    "2025-06-14",
			Time:    "09:00",
		}
	}

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		msg    string
	}{
		{"ok", func(*BookingRequest) {}, ""},
		{"missing name", func(r *BookingRequest) { r.Name = "  " }, "Missing fields"},
		{"missing service", func(r *BookingRequest) { r.Service = "" }, "Missing fields"},
		{"bad email", func(r *BookingRequest) { r.Email = "ada" }, "Invalid email address"},
		{"bad date", func(r *BookingRequest) { r.Date = "14/06/2025" }, "Invalid date, expected YYYY-MM-DD"},
		{"impossible date", func(r *BookingRequest) { r.Date = "2025-02-30" }, "Invalid date, expected YYYY-MM-DD"},
		{"bad time", func(r *BookingRequest) { r.Time = "9am" }, "Invalid time, expected HH:MM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			r.Normalize()
			err := r.Validate()
			if tt.msg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if r.Service != "bridal-white" || r.Name != "Ada Lovelace" || r.Email != "ada@example.com" {
					t.Fatalf("not normalized: %+v", r)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Message != tt.msg {
				t.Fatalf("got %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestServiceName(t *testing.T) {
	if got := ServiceName("bridal-white"); got != "White wedding" {
		t.Fatalf("ServiceName = %q", got)
	}
	if got := ServiceName("henna"); got != "henna" {
		t.Fatalf("unknown slug = %q", got)
	}
}

func TestNewMonthAvailability_DropsEmptyDays(t *testing.T) {
	ma := NewMonthAvailability([]AvailabilityDay{
		{Date: "2025-06-14", Slots: []string{"09:00"}},
		{Date: "2025-06-15"},
	})
	if len(ma.Dates) != 1 || ma.Dates[0] != "2025-06-14" {
		t.Fatalf("dates = %v", ma.Dates)
	}
}
