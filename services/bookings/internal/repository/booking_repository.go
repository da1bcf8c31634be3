package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository is the append-only booking ledger. Rows are never
// deleted, only moved between statuses.
type BookingRepository interface {
	// Create inserts a pending booking. It returns domain.ErrSlotUnavailable
	// when another active booking already holds the same date and time.
	Create(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByMonth(ctx context.Context, month domain.Month) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	// HasActive reports whether a pending or confirmed booking holds the slot.
	HasActive(ctx context.Context, date time.Time, tm string) (bool, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

var _ BookingRepository = (*bookingRepository)(nil)

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, name, email, phone, service, date, time, notes, status, created_at, updated_at`

const uniqueViolation = "23505"

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b    domain.Booking
		date time.Time
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Email, &b.Phone, &b.Service,
		&date, &b.Time, &b.Notes, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Date = domain.FormatDate(date)
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (name, email, phone, service, date, time, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')
		RETURNING ` + bookingCols

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q,
		req.Name, req.Email, req.Phone, req.Service, date, req.Time, req.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrSlotUnavailable
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) ListByMonth(ctx context.Context, month domain.Month) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC, time ASC, id ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, month.FirstDay(), month.LastDay())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// UpdateStatus returns nil, nil when no booking has the id. Reactivating a
// cancelled booking whose slot was taken since surfaces as ErrSlotUnavailable.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1 RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, status))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrSlotUnavailable
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) HasActive(ctx context.Context, date time.Time, tm string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE date = $1 AND time = $2 AND status IN ('pending', 'confirmed'))`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var held bool
	if err := r.pool.QueryRow(ctx, q, date, tm).Scan(&held); err != nil {
		return false, err
	}
	return held, nil
}
