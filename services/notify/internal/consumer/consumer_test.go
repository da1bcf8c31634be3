package consumer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/events"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	"github.com/diagnosis/papro-bookings/services/notify/internal/consumer"
)

type sentMail struct {
	kind   string
	email  mailer.BookingEmail
	status string
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockMailer) SendBookingConfirmation(_ context.Context, b mailer.BookingEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "confirmation", email: b})
	return m.err
}

func (m *mockMailer) SendBookingStatus(_ context.Context, b mailer.BookingEmail, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "status", email: b, status: status})
	return m.err
}

func (m *mockMailer) SendPasswordReset(context.Context, string, string, time.Duration) error {
	return errors.New("not expected")
}

func bookingEvent(status string) events.BookingEvent {
	return events.BookingEvent{
		BookingID:   7,
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Service:     "bridal-white",
		ServiceName: "White wedding",
		Date:        "2025-06-14",
		Time:        "09:00",
		Status:      status,
	}
}

func TestConsumerRoutesSubjects(t *testing.T) {
	bus := events.NewMemoryBus()
	mail := &mockMailer{}
	if err := consumer.New(mail).Register(bus); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := context.Background()

	bus.Publish(ctx, events.BookingCreated, bookingEvent("pending"))
	bus.Publish(ctx, events.BookingConfirmed, bookingEvent("confirmed"))
	bus.Publish(ctx, events.BookingCancelled, bookingEvent("cancelled"))

	want := []struct{ kind, status string }{
		{"confirmation", ""},
		{"status", "confirmed"},
		{"status", "cancelled"},
	}
	if len(mail.sent) != len(want) {
		t.Fatalf("sent %d emails, want %d", len(mail.sent), len(want))
	}
	for i, w := range want {
		got := mail.sent[i]
		if got.kind != w.kind || got.status != w.status {
			t.Errorf("email %d = %s/%s, want %s/%s", i, got.kind, got.status, w.kind, w.status)
		}
		if got.email.ServiceName != "White wedding" || got.email.Email != "ada@example.com" {
			t.Errorf("email %d = %+v", i, got.email)
		}
	}
}

func TestConsumerRegisterIsIdempotentPerQueue(t *testing.T) {
	bus := events.NewMemoryBus()
	mail := &mockMailer{}
	c := consumer.New(mail)
	for i := 0; i < 2; i++ {
		if err := c.Register(bus); err != nil {
			t.Fatal(err)
		}
	}

	bus.Publish(context.Background(), events.BookingCreated, bookingEvent("pending"))
	if len(mail.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mail.sent))
	}
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		msg     *events.Message
		mailErr error
		wantErr bool
		sent    int
	}{
		{"malformed payload", &events.Message{Subject: events.BookingCreated, Data: []byte("{")}, nil, true, 0},
		{"missing email", &events.Message{Subject: events.BookingCreated, Data: []byte(`{"booking_id":1}`)}, nil, false, 0},
		{"mailer failure", &events.Message{Subject: events.BookingCreated, Data: []byte(`{"booking_id":1,"email":"a@b.co"}`)}, errors.New("smtp down"), true, 1},
		{"unknown subject", &events.Message{Subject: "booking.archived", Data: []byte(`{"email":"a@b.co"}`)}, nil, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mail := &mockMailer{err: tt.mailErr}
			err := consumer.New(mail).Handle(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(mail.sent) != tt.sent {
				t.Fatalf("sent = %d, want %d", len(mail.sent), tt.sent)
			}
		})
	}
}
