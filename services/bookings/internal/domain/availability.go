package domain

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Month is a calendar month in UTC. The zero value is not valid.
type Month struct {
	first time.Time
}

// ParseMonth accepts exactly YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil || t.Format(MonthLayout) != s {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{first: t}, nil
}

func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{first: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

func (m Month) String() string {
	return m.first.Format(MonthLayout)
}

func (m Month) FirstDay() time.Time {
	return m.first
}

// LastDay is the final calendar day of the month (28 to 31 days in).
func (m Month) LastDay() time.Time {
	return m.first.AddDate(0, 1, -1)
}

func (m Month) Contains(day time.Time) bool {
	return !day.Before(m.first) && !day.After(m.LastDay())
}

// ParseDate accepts exactly YYYY-MM-DD and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsValidTime reports whether s is a 24h HH:MM time of day.
func IsValidTime(s string) bool {
	return timeOfDay.MatchString(s)
}

// NormalizeSlots validates, de-duplicates and sorts a slot list. HH:MM
// strings sort chronologically as plain strings.
func NormalizeSlots(slots []string) ([]string, error) {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if !IsValidTime(s) {
			return nil, &ValidationError{Field: "slots", Message: fmt.Sprintf("Invalid time slot %q", s)}
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// BookableSlots is the lenient form of NormalizeSlots used on stored rows:
// entries a booking could never match are returned in dropped instead of
// failing the whole list.
func BookableSlots(slots []string) (kept, dropped []string) {
	seen := make(map[string]struct{}, len(slots))
	kept = make([]string, 0, len(slots))
	for _, s := range slots {
		if !IsValidTime(s) {
			dropped = append(dropped, s)
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		kept = append(kept, s)
	}
	sort.Strings(kept)
	return kept, dropped
}

// AvailabilityDay is one date's open slots. An empty slot list means the
// date is not offered.
type AvailabilityDay struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// MonthAvailability is the wire shape shared by the calendar read and the
// admin save.
type MonthAvailability struct {
	Dates       []string            `json:"dates"`
	SlotsByDate map[string][]string `json:"slotsByDate"`
}

// Days flattens the payload into per-date rows. Dates listed without slots,
// or with an empty list, yield an empty day.
func (m MonthAvailability) Days() []AvailabilityDay {
	days := make([]AvailabilityDay, 0, len(m.Dates))
	for _, d := range m.Dates {
		days = append(days, AvailabilityDay{Date: d, Slots: m.SlotsByDate[d]})
	}
	return days
}

func NewMonthAvailability(days []AvailabilityDay) MonthAvailability {
	out := MonthAvailability{
		Dates:       make([]string, 0, len(days)),
		SlotsByDate: make(map[string][]string, len(days)),
	}
	for _, d := range days {
		if len(d.Slots) == 0 {
			continue
		}
		out.Dates = append(out.Dates, d.Date)
		out.SlotsByDate[d.Date] = d.Slots
	}
	return out
}

// AvailabilityUpdate is the admin's whole-month save.
type AvailabilityUpdate struct {
	Month       string              `json:"month"`
	Dates       []string            `json:"dates"`
	SlotsByDate map[string][]string `json:"slotsByDate"`
}

// SlotsUpdate replaces a single date's slots.
type SlotsUpdate struct {
	Slots []string `json:"slots"`
}
