package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/pkg/logger"
)

// Service sends the site's transactional emails.
type Service interface {
	SendBookingConfirmation(ctx context.Context, b BookingEmail) error
	SendBookingStatus(ctx context.Context, b BookingEmail, status string) error
	SendPasswordReset(ctx context.Context, to, resetURL string, ttl time.Duration) error
}

// BookingEmail is the client-facing view of a booking.
type BookingEmail struct {
	Name        string
	Email       string
	Phone       string
	ServiceName string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Notes       string
}

// Message is one rendered email ready for a transport.
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders templates and hands them to a Transport.
type Mailer struct {
	transport Transport
	replyTo   string
}

var _ Service = (*Mailer)(nil)

func New(transport Transport, replyTo string) *Mailer {
	return &Mailer{transport: transport, replyTo: replyTo}
}

// FromConfig picks the transport: dev mode logs, a MailerSend key uses the
// API, anything else goes over SMTP.
func FromConfig(cfg config.EmailConfig) *Mailer {
	var t Transport
	switch {
	case cfg.DevMode:
		logger.Info("Using dev mailer (emails will be logged)")
		t = NewDevMailer()
	case cfg.MailerSendKey != "":
		logger.Info("Using MailerSend mailer")
		t = NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail)
	default:
		logger.Info("Using SMTP mailer", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		from := cfg.FromEmail
		if cfg.FromName != "" {
			from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
		}
		t = NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, from, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
	return New(t, cfg.ReplyTo)
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, b BookingEmail) error {
	msg := bookingConfirmation(b)
	msg.ReplyTo = m.replyTo
	return m.transport.Send(ctx, msg)
}

func (m *Mailer) SendBookingStatus(ctx context.Context, b BookingEmail, status string) error {
	msg, err := bookingStatus(b, status)
	if err != nil {
		return err
	}
	msg.ReplyTo = m.replyTo
	return m.transport.Send(ctx, msg)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetURL string, ttl time.Duration) error {
	msg := passwordReset(to, resetURL, ttl)
	msg.ReplyTo = m.replyTo
	return m.transport.Send(ctx, msg)
}
