package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/repository"
)

const notifyTimeout = 5 * time.Second

type BookingService interface {
	Submit(ctx context.Context, req *domain.BookingRequest) (*domain.SubmitResult, error)
	ListByMonth(ctx context.Context, month string) ([]domain.Booking, error)
	Transition(ctx context.Context, id int64, action domain.BookingAction) (*domain.Booking, error)
}

type bookingService struct {
	bookingRepo      repository.BookingRepository
	availabilityRepo repository.AvailabilityRepository
	notifier         Notifier
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	availabilityRepo repository.AvailabilityRepository,
	notifier Notifier,
) BookingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &bookingService{
		bookingRepo:      bookingRepo,
		availabilityRepo: availabilityRepo,
		notifier:         notifier,
	}
}

// Submit books an open slot: check the slot, insert the booking, then take
// the slot out of availability. The booking row is written before the slot
// is removed so a failed slot update never loses a booking.
func (s *bookingService) Submit(ctx context.Context, req *domain.BookingRequest) (*domain.SubmitResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := domain.ParseDate(req.Date)

	slots, err := s.availabilityRepo.GetSlotsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}
	if !slices.Contains(slots, req.Time) {
		return nil, domain.ErrSlotUnavailable
	}

	booking, err := s.bookingRepo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := s.availabilityRepo.RemoveSlot(ctx, date, booking.Time); err != nil {
		logger.ErrorContext(ctx, "Booking stored but slot removal failed", "error", err, "booking_id", booking.ID)
		return nil, fmt.Errorf("failed to remove booked slot: %w", err)
	}

	logger.InfoContext(ctx, "Booking created", "booking_id", booking.ID, "date", booking.Date, "time", booking.Time)

	result := &domain.SubmitResult{Booking: booking}
	result.NotificationErr = s.notify(ctx, booking, s.notifier.BookingCreated)
	return result, nil
}

func (s *bookingService) ListByMonth(ctx context.Context, month string) ([]domain.Booking, error) {
	if month == "" {
		return nil, &domain.ValidationError{Field: "month", Message: "Missing month"}
	}
	m, err := domain.ParseMonth(month)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookingRepo.ListByMonth(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Transition applies an admin decision. Accept confirms and makes sure the
// slot is closed; cancel cancels and makes sure the slot is open again while
// no other active booking holds it. Both are safe to repeat.
func (s *bookingService) Transition(ctx context.Context, id int64, action domain.BookingAction) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}

	date, err := domain.ParseDate(booking.Date)
	if err != nil {
		return nil, fmt.Errorf("booking %d has malformed date: %w", id, err)
	}

	previous := booking.Status
	switch action {
	case domain.ActionAccept:
		if previous != domain.BookingConfirmed {
			if booking, err = s.setStatus(ctx, id, domain.BookingConfirmed); err != nil {
				return nil, err
			}
		}
		if err := s.availabilityRepo.RemoveSlot(ctx, date, booking.Time); err != nil {
			return nil, fmt.Errorf("failed to close slot: %w", err)
		}

	case domain.ActionCancel:
		if previous != domain.BookingCancelled {
			if booking, err = s.setStatus(ctx, id, domain.BookingCancelled); err != nil {
				return nil, err
			}
		}
		// Repeat cancels reopen the slot too, so a failed reopen can be
		// retried, unless the slot has been booked again since.
		held, err := s.bookingRepo.HasActive(ctx, date, booking.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to check slot holder: %w", err)
		}
		if !held {
			if err := s.availabilityRepo.AddSlot(ctx, date, booking.Time); err != nil {
				return nil, fmt.Errorf("failed to reopen slot: %w", err)
			}
		}

	default:
		return nil, &domain.ValidationError{Field: "action", Message: "Unsupported action"}
	}

	logger.InfoContext(ctx, "Booking transitioned",
		"booking_id", id, "action", string(action), "from", string(previous), "to", string(booking.Status))

	if booking.Status != previous {
		s.notify(ctx, booking, s.notifier.BookingStatusChanged)
	}
	return booking, nil
}

func (s *bookingService) setStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	updated, err := s.bookingRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrBookingNotFound
	}
	return updated, nil
}

// notify runs fn with its own deadline, detached from request cancellation.
// The error is logged and returned for the caller's records only.
func (s *bookingService) notify(ctx context.Context, b *domain.Booking, fn func(context.Context, *domain.Booking) error) error {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := fn(nctx, b); err != nil {
		logger.ErrorContext(ctx, "Failed to send booking notification", "error", err, "booking_id", b.ID, "status", string(b.Status))
		return err
	}
	return nil
}
