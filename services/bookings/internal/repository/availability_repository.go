package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AvailabilityRepository stores each date's open slots. A date with no slots
// is never returned.
type AvailabilityRepository interface {
	GetMonth(ctx context.Context, month domain.Month) ([]domain.AvailabilityDay, error)
	// ReplaceMonth deletes every row in the month window, then inserts days.
	ReplaceMonth(ctx context.Context, month domain.Month, days []domain.AvailabilityDay) error
	GetSlotsForDate(ctx context.Context, date time.Time) ([]string, error)
	// SetSlotsForDate overwrites one date. An empty list removes the date.
	SetSlotsForDate(ctx context.Context, date time.Time, slots []string) error
	// RemoveSlot and AddSlot edit a single slot atomically; both are no-ops
	// when the slot is already absent or present.
	RemoveSlot(ctx context.Context, date time.Time, slot string) error
	AddSlot(ctx context.Context, date time.Time, slot string) error
}

type availabilityRepository struct {
	pool *pgxpool.Pool
}

var _ AvailabilityRepository = (*availabilityRepository)(nil)

func NewAvailabilityRepository(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepository{pool: pool}
}

func (r *availabilityRepository) GetMonth(ctx context.Context, month domain.Month) ([]domain.AvailabilityDay, error) {
	const q = `SELECT date, time_slots FROM availability
		WHERE date BETWEEN $1 AND $2 AND cardinality(time_slots) > 0
		ORDER BY date ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, month.FirstDay(), month.LastDay())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]domain.AvailabilityDay, 0)
	for rows.Next() {
		var (
			date  time.Time
			slots []string
		)
		if err := rows.Scan(&date, &slots); err != nil {
			return nil, err
		}
		days = append(days, domain.AvailabilityDay{Date: domain.FormatDate(date), Slots: slots})
	}
	return days, rows.Err()
}

func (r *availabilityRepository) ReplaceMonth(ctx context.Context, month domain.Month, days []domain.AvailabilityDay) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM availability WHERE date BETWEEN $1 AND $2`,
			month.FirstDay(), month.LastDay(),
		); err != nil {
			return fmt.Errorf("clearing month: %w", err)
		}

		batch := &pgx.Batch{}
		for _, d := range days {
			if len(d.Slots) == 0 {
				continue
			}
			date, err := domain.ParseDate(d.Date)
			if err != nil {
				return err
			}
			batch.Queue(`INSERT INTO availability (date, time_slots) VALUES ($1, $2)`, date, d.Slots)
		}
		if batch.Len() == 0 {
			return nil
		}

		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("inserting availability: %w", err)
			}
		}
		return br.Close()
	})
}

func (r *availabilityRepository) GetSlotsForDate(ctx context.Context, date time.Time) ([]string, error) {
	const q = `SELECT time_slots FROM availability WHERE date = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var slots []string
	err := r.pool.QueryRow(ctx, q, date).Scan(&slots)
	if err == pgx.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

func (r *availabilityRepository) SetSlotsForDate(ctx context.Context, date time.Time, slots []string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if len(slots) == 0 {
		_, err := r.pool.Exec(ctx, `DELETE FROM availability WHERE date = $1`, date)
		return err
	}

	const q = `INSERT INTO availability (date, time_slots) VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET time_slots = EXCLUDED.time_slots, updated_at = now()`
	_, err := r.pool.Exec(ctx, q, date, slots)
	return err
}

func (r *availabilityRepository) RemoveSlot(ctx context.Context, date time.Time, slot string) error {
	const q = `UPDATE availability
		SET time_slots = array_remove(time_slots, $2::text), updated_at = now()
		WHERE date = $1 AND $2::text = ANY(time_slots)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, date, slot)
	return err
}

func (r *availabilityRepository) AddSlot(ctx context.Context, date time.Time, slot string) error {
	// Creates the date row if needed; the merged list stays sorted and unique.
	const q = `INSERT INTO availability (date, time_slots) VALUES ($1, ARRAY[$2::text])
		ON CONFLICT (date) DO UPDATE SET
			time_slots = (
				SELECT array_agg(DISTINCT s ORDER BY s)
				FROM unnest(availability.time_slots || $2::text) AS s
			),
			updated_at = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, date, slot)
	return err
}
