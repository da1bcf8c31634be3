package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/events"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
)

// Notifier tells the client about their booking. Delivery is best-effort:
// callers log failures and carry on.
type Notifier interface {
	BookingCreated(ctx context.Context, b *domain.Booking) error
	BookingStatusChanged(ctx context.Context, b *domain.Booking) error
}

// EventNotifier hands notifications to the notify service over the event bus.
type EventNotifier struct {
	publisher events.Publisher
	now       func() time.Time
}

func NewEventNotifier(publisher events.Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher, now: time.Now}
}

func (n *EventNotifier) BookingCreated(ctx context.Context, b *domain.Booking) error {
	return n.publisher.Publish(ctx, events.BookingCreated, n.event(b))
}

func (n *EventNotifier) BookingStatusChanged(ctx context.Context, b *domain.Booking) error {
	var subject string
	switch b.Status {
	case domain.BookingConfirmed:
		subject = events.BookingConfirmed
	case domain.BookingCancelled:
		subject = events.BookingCancelled
	default:
		return fmt.Errorf("no event for booking status %q", b.Status)
	}
	return n.publisher.Publish(ctx, subject, n.event(b))
}

func (n *EventNotifier) event(b *domain.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:   b.ID,
		Name:        b.Name,
		Email:       b.Email,
		Phone:       b.Phone,
		Service:     b.Service,
		ServiceName: domain.ServiceName(b.Service),
		Date:        b.Date,
		Time:        b.Time,
		Notes:       b.Notes,
		Status:      string(b.Status),
		OccurredAt:  n.now().UTC(),
	}
}

// MailNotifier emails the client directly from the bookings service.
type MailNotifier struct {
	mail mailer.Service
}

func NewMailNotifier(mail mailer.Service) *MailNotifier {
	return &MailNotifier{mail: mail}
}

func (n *MailNotifier) BookingCreated(ctx context.Context, b *domain.Booking) error {
	return n.mail.SendBookingConfirmation(ctx, bookingEmail(b))
}

func (n *MailNotifier) BookingStatusChanged(ctx context.Context, b *domain.Booking) error {
	return n.mail.SendBookingStatus(ctx, bookingEmail(b), string(b.Status))
}

func bookingEmail(b *domain.Booking) mailer.BookingEmail {
	return mailer.BookingEmail{
		Name:        b.Name,
		Email:       b.Email,
		Phone:       b.Phone,
		ServiceName: domain.ServiceName(b.Service),
		Date:        b.Date,
		Time:        b.Time,
		Notes:       b.Notes,
	}
}

// AsyncNotifier runs the wrapped notifier on its own goroutine so a slow
// mail provider never holds up the response. Failures are logged there and
// the caller always sees nil.
type AsyncNotifier struct {
	inner   Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(inner Notifier, timeout time.Duration) *AsyncNotifier {
	return &AsyncNotifier{inner: inner, timeout: timeout}
}

func (n *AsyncNotifier) BookingCreated(ctx context.Context, b *domain.Booking) error {
	n.dispatch(ctx, b, n.inner.BookingCreated)
	return nil
}

func (n *AsyncNotifier) BookingStatusChanged(ctx context.Context, b *domain.Booking) error {
	n.dispatch(ctx, b, n.inner.BookingStatusChanged)
	return nil
}

func (n *AsyncNotifier) dispatch(ctx context.Context, b *domain.Booking, fn func(context.Context, *domain.Booking) error) {
	booking := *b
	detached := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()

		if err := fn(ctx, &booking); err != nil {
			logger.ErrorContext(ctx, "Failed to send booking notification", "error", err, "booking_id", booking.ID, "status", string(booking.Status))
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(context.Context, *domain.Booking) error       { return nil }
func (noopNotifier) BookingStatusChanged(context.Context, *domain.Booking) error { return nil }
