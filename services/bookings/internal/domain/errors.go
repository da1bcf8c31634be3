package domain

import "errors"

var (
	ErrSlotUnavailable = errors.New("selected time is no longer available")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidMonth    = errors.New("invalid month")
)

// ValidationError is a client error whose Message is safe to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
