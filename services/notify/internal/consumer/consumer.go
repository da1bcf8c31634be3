// Package consumer turns booking events into client emails.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diagnosis/papro-bookings/pkg/events"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
)

// QueueName is the queue group shared by every notify replica, so each
// event is emailed once.
const QueueName = "notify"

type Consumer struct {
	mailer mailer.Service
}

func New(mail mailer.Service) *Consumer {
	return &Consumer{mailer: mail}
}

// Register subscribes to every booking subject.
func (c *Consumer) Register(sub events.Subscriber) error {
	for _, subject := range events.BookingSubjects {
		if err := sub.QueueSubscribe(subject, QueueName, c.Handle); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}
	return nil
}

func (c *Consumer) Handle(ctx context.Context, msg *events.Message) error {
	var evt events.BookingEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", msg.Subject, err)
	}
	if evt.Email == "" {
		logger.WarnContext(ctx, "Booking event without email, skipping", "subject", msg.Subject, "booking_id", evt.BookingID)
		return nil
	}

	email := mailer.BookingEmail{
		Name:        evt.Name,
		Email:       evt.Email,
		Phone:       evt.Phone,
		ServiceName: evt.ServiceName,
		Date:        evt.Date,
		Time:        evt.Time,
		Notes:       evt.Notes,
	}
	if email.ServiceName == "" {
		email.ServiceName = evt.Service
	}

	var err error
	switch msg.Subject {
	case events.BookingCreated:
		err = c.mailer.SendBookingConfirmation(ctx, email)
	case events.BookingConfirmed, events.BookingCancelled:
		err = c.mailer.SendBookingStatus(ctx, email, evt.Status)
	default:
		logger.WarnContext(ctx, "Unexpected subject", "subject", msg.Subject)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to email booking %d: %w", evt.BookingID, err)
	}

	logger.InfoContext(ctx, "Booking email sent", "subject", msg.Subject, "booking_id", evt.BookingID, "message_id", msg.ID)
	return nil
}
