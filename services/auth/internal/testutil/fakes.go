// Package testutil holds fakes for the auth service's collaborators.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
)

// Credentials compares passwords in plain text so tests skip argon2id.
type Credentials struct {
	mu        sync.Mutex
	password  string
	VerifyErr error
	UpdateErr error
}

var _ auth.CredentialStore = (*Credentials)(nil)

func NewCredentials(password string) *Credentials {
	return &Credentials{password: password}
}

func (c *Credentials) Verify(_ context.Context, password string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.VerifyErr != nil {
		return false, c.VerifyErr
	}
	return password != "" && password == c.password, nil
}

func (c *Credentials) Update(_ context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	c.password = password
	return nil
}

type ResetMail struct {
	To       string
	ResetURL string
	TTL      time.Duration
}

// Mailer records password reset emails.
type Mailer struct {
	mu     sync.Mutex
	Resets []ResetMail
	Err    error
}

var _ mailer.Service = (*Mailer)(nil)

func (m *Mailer) SendBookingConfirmation(context.Context, mailer.BookingEmail) error {
	return m.Err
}

func (m *Mailer) SendBookingStatus(context.Context, mailer.BookingEmail, string) error {
	return m.Err
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, resetURL string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, ResetMail{To: to, ResetURL: resetURL, TTL: ttl})
	return m.Err
}

// Last returns the most recent reset email, or the zero value.
func (m *Mailer) Last() ResetMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		return ResetMail{}
	}
	return m.Resets[len(m.Resets)-1]
}
