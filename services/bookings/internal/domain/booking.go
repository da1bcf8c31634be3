package domain

import (
	"strings"
	"time"

	"github.com/diagnosis/papro-bookings/internal/utils"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Active bookings hold their slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

type Booking struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Service   string        `json:"service"`
	Date      string        `json:"date"`
	Time      string        `json:"time"`
	Notes     string        `json:"notes"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

const (
	maxNameLen  = 120
	maxNotesLen = 2000
)

type BookingRequest struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Notes   string `json:"notes,omitempty"`
}

func (r *BookingRequest) Normalize() {
	r.Service = strings.ToLower(strings.TrimSpace(r.Service))
	r.Name = utils.Truncate(utils.NormalizeString(r.Name), maxNameLen)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Notes = utils.Truncate(strings.TrimSpace(r.Notes), maxNotesLen)
}

// Validate expects a normalized request.
func (r *BookingRequest) Validate() error {
	if r.Service == "" || r.Name == "" || r.Email == "" || r.Phone == "" || r.Date == "" || r.Time == "" {
		return &ValidationError{Message: "Missing fields"}
	}
	if !utils.IsValidEmail(r.Email) {
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	}
	if !utils.IsValidPhone(r.Phone) {
		return &ValidationError{Field: "phone", Message: "Invalid phone number"}
	}
	if _, err := ParseDate(r.Date); err != nil {
		return &ValidationError{Field: "date", Message: "Invalid date, expected YYYY-MM-DD"}
	}
	if !IsValidTime(r.Time) {
		return &ValidationError{Field: "time", Message: "Invalid time, expected HH:MM"}
	}
	return nil
}

type BookingAction string

const (
	ActionAccept BookingAction = "accept"
	ActionCancel BookingAction = "cancel"
)

func ParseBookingAction(s string) (BookingAction, bool) {
	switch BookingAction(s) {
	case ActionAccept, ActionCancel:
		return BookingAction(s), true
	default:
		return "", false
	}
}

type TransitionRequest struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// SubmitResult separates a stored booking from the outcome of its
// best-effort notification. NotificationErr never fails the submission.
type SubmitResult struct {
	Booking         *Booking
	NotificationErr error
}
