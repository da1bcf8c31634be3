package events

import (
	"context"
	"fmt"
	"time"
)

// Handler processes one delivered message. A returned error is logged and,
// on brokers that support it, rejects the message.
type Handler func(ctx context.Context, msg *Message) error

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler Handler) error
	QueueSubscribe(subject, queue string, handler Handler) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

const (
	BackendNATS   = "nats"
	BackendAMQP   = "amqp"
	BackendMemory = "memory"
)

// Connect opens the bus named by backend. "log" is accepted as an alias for
// the in-process bus.
func Connect(backend, natsURL, amqpURL string) (EventBus, error) {
	switch backend {
	case BackendNATS, "":
		return NewNATSEventBus(natsURL)
	case BackendAMQP:
		return NewAMQPEventBus(amqpURL)
	case BackendMemory, "log":
		return NewMemoryBus(), nil
	default:
		return nil, fmt.Errorf("unknown event bus backend %q", backend)
	}
}

// Event subjects
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
)

// BookingSubjects lists every subject the notifier listens on.
var BookingSubjects = []string{BookingCreated, BookingConfirmed, BookingCancelled}

// BookingEvent carries everything needed to email the client without a
// lookup back into the bookings database.
type BookingEvent struct {
	BookingID   int64     `json:"booking_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Service     string    `json:"service"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
