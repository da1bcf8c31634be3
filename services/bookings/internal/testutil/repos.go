// Package testutil holds in-memory fakes of the bookings repositories with
// the same semantics as the Postgres ones, including the one-active-booking
// per slot constraint.
package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/repository"
)

type AvailabilityRepo struct {
	mu    sync.Mutex
	slots map[string][]string

	// Set to force the next calls of each kind to fail.
	GetErr     error
	RemoveErr  error
	AddErr     error
	ReplaceErr error
}

var _ repository.AvailabilityRepository = (*AvailabilityRepo)(nil)

func NewAvailabilityRepo() *AvailabilityRepo {
	return &AvailabilityRepo{slots: make(map[string][]string)}
}

// Seed sets a date's slots directly.
func (r *AvailabilityRepo) Seed(date string, slots ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[date] = append([]string(nil), slots...)
}

// Slots returns a copy of a date's slots, nil when the date is absent.
func (r *AvailabilityRepo) Slots(date string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[date]
	if !ok {
		return nil
	}
	return append([]string{}, s...)
}

func (r *AvailabilityRepo) GetMonth(_ context.Context, month domain.Month) ([]domain.AvailabilityDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}

	days := make([]domain.AvailabilityDay, 0)
	for date, slots := range r.slots {
		d, err := domain.ParseDate(date)
		if err != nil || !month.Contains(d) || len(slots) == 0 {
			continue
		}
		days = append(days, domain.AvailabilityDay{Date: date, Slots: append([]string(nil), slots...)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (r *AvailabilityRepo) ReplaceMonth(_ context.Context, month domain.Month, days []domain.AvailabilityDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ReplaceErr != nil {
		return r.ReplaceErr
	}

	for date := range r.slots {
		if d, err := domain.ParseDate(date); err == nil && month.Contains(d) {
			delete(r.slots, date)
		}
	}
	for _, d := range days {
		if len(d.Slots) > 0 {
			r.slots[d.Date] = append([]string(nil), d.Slots...)
		}
	}
	return nil
}

func (r *AvailabilityRepo) GetSlotsForDate(_ context.Context, date time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	return append([]string{}, r.slots[domain.FormatDate(date)]...), nil
}

func (r *AvailabilityRepo) SetSlotsForDate(_ context.Context, date time.Time, slots []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.FormatDate(date)
	if len(slots) == 0 {
		delete(r.slots, key)
		return nil
	}
	r.slots[key] = append([]string(nil), slots...)
	return nil
}

func (r *AvailabilityRepo) RemoveSlot(_ context.Context, date time.Time, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RemoveErr != nil {
		return r.RemoveErr
	}
	key := domain.FormatDate(date)
	if s, ok := r.slots[key]; ok {
		r.slots[key] = slices.DeleteFunc(s, func(v string) bool { return v == slot })
	}
	return nil
}

func (r *AvailabilityRepo) AddSlot(_ context.Context, date time.Time, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.AddErr != nil {
		return r.AddErr
	}
	key := domain.FormatDate(date)
	s := r.slots[key]
	if !slices.Contains(s, slot) {
		s = append(s, slot)
		sort.Strings(s)
	}
	r.slots[key] = s
	return nil
}

type BookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
	now      func() time.Time

	CreateErr    error
	HasActiveErr error
}

var _ repository.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{
		nextID:   1,
		bookings: make(map[int64]*domain.Booking),
		now:      time.Now,
	}
}

// Len reports how many rows the ledger holds.
func (r *BookingRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *BookingRepo) activeHolder(date, tm string, except int64) bool {
	for id, b := range r.bookings {
		if id != except && b.Date == date && b.Time == tm && b.Status.Active() {
			return true
		}
	}
	return false
}

func (r *BookingRepo) Create(_ context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	if r.activeHolder(req.Date, req.Time, 0) {
		return nil, domain.ErrSlotUnavailable
	}

	now := r.now()
	b := &domain.Booking{
		ID:        r.nextID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Service:   req.Service,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
		Status:    domain.BookingPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.bookings[b.ID] = b
	cp := *b
	return &cp, nil
}

func (r *BookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BookingRepo) ListByMonth(_ context.Context, month domain.Month) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.bookings {
		if d, err := domain.ParseDate(b.Date); err == nil && month.Contains(d) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *BookingRepo) UpdateStatus(_ context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	if status.Active() && !b.Status.Active() && r.activeHolder(b.Date, b.Time, id) {
		return nil, domain.ErrSlotUnavailable
	}
	b.Status = status
	b.UpdatedAt = r.now()
	cp := *b
	return &cp, nil
}

func (r *BookingRepo) HasActive(_ context.Context, date time.Time, tm string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.HasActiveErr != nil {
		return false, r.HasActiveErr
	}
	return r.activeHolder(domain.FormatDate(date), tm, 0), nil
}
