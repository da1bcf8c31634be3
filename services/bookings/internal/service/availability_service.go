package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/repository"
)

type AvailabilityService interface {
	// GetMonth reads one month's calendar. An empty month means the current one.
	GetMonth(ctx context.Context, month string) (domain.MonthAvailability, error)
	ReplaceMonth(ctx context.Context, upd domain.AvailabilityUpdate) error
	SetSlots(ctx context.Context, date string, slots []string) ([]string, error)
}

type availabilityService struct {
	availabilityRepo repository.AvailabilityRepository
	now              func() time.Time
}

func NewAvailabilityService(availabilityRepo repository.AvailabilityRepository) AvailabilityService {
	return &availabilityService{availabilityRepo: availabilityRepo, now: time.Now}
}

func (s *availabilityService) GetMonth(ctx context.Context, month string) (domain.MonthAvailability, error) {
	m := domain.MonthOf(s.now())
	if month != "" {
		var err error
		if m, err = domain.ParseMonth(month); err != nil {
			return domain.MonthAvailability{}, err
		}
	}

	days, err := s.availabilityRepo.GetMonth(ctx, m)
	if err != nil {
		return domain.MonthAvailability{}, fmt.Errorf("failed to load availability: %w", err)
	}
	for i := range days {
		// Rows written before slot validation may hold times the booking
		// path rejects; offering them would only lead to failed bookings.
		kept, dropped := domain.BookableSlots(days[i].Slots)
		if len(dropped) > 0 {
			logger.WarnContext(ctx, "Ignoring malformed stored slots", "date", days[i].Date, "slots", dropped)
		}
		days[i].Slots = kept
	}
	return domain.NewMonthAvailability(days), nil
}

func (s *availabilityService) ReplaceMonth(ctx context.Context, upd domain.AvailabilityUpdate) error {
	if upd.Month == "" || upd.Dates == nil || upd.SlotsByDate == nil {
		return &domain.ValidationError{Message: "Invalid payload"}
	}
	m, err := domain.ParseMonth(upd.Month)
	if err != nil {
		return err
	}

	payload := domain.MonthAvailability{Dates: upd.Dates, SlotsByDate: upd.SlotsByDate}
	days := make([]domain.AvailabilityDay, 0, len(upd.Dates))
	seen := make(map[string]bool, len(upd.Dates))
	for _, d := range payload.Days() {
		date, err := domain.ParseDate(d.Date)
		if err != nil {
			return &domain.ValidationError{Field: "dates", Message: fmt.Sprintf("Invalid date %q", d.Date)}
		}
		if !m.Contains(date) {
			logger.WarnContext(ctx, "Dropping date outside month", "month", m.String(), "date", d.Date)
			continue
		}
		if seen[d.Date] {
			continue
		}
		seen[d.Date] = true

		slots, err := domain.NormalizeSlots(d.Slots)
		if err != nil {
			return err
		}
		days = append(days, domain.AvailabilityDay{Date: d.Date, Slots: slots})
	}

	if err := s.availabilityRepo.ReplaceMonth(ctx, m, days); err != nil {
		return fmt.Errorf("failed to replace availability: %w", err)
	}
	logger.InfoContext(ctx, "Availability replaced", "month", m.String(), "dates", len(days))
	return nil
}

func (s *availabilityService) SetSlots(ctx context.Context, date string, slots []string) ([]string, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, &domain.ValidationError{Field: "date", Message: "Invalid date, expected YYYY-MM-DD"}
	}
	norm, err := domain.NormalizeSlots(slots)
	if err != nil {
		return nil, err
	}

	if err := s.availabilityRepo.SetSlotsForDate(ctx, day, norm); err != nil {
		return nil, fmt.Errorf("failed to update slots: %w", err)
	}
	return norm, nil
}
