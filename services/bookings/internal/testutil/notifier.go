package testutil

import (
	"context"
	"sync"

	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
)

// Notifier records notifications and can be made to fail.
type Notifier struct {
	mu      sync.Mutex
	Created []domain.Booking
	Changed []domain.Booking
	Err     error
}

func (n *Notifier) BookingCreated(_ context.Context, b *domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Created = append(n.Created, *b)
	return n.Err
}

func (n *Notifier) BookingStatusChanged(_ context.Context, b *domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Changed = append(n.Changed, *b)
	return n.Err
}
