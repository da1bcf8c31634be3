package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/papro-bookings/pkg/auth"
)

// CredentialRepository keeps the admin passcode hash in the single-row
// admin_credentials table so a reset survives restarts and is shared by
// every replica.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

var _ auth.CredentialStore = (*CredentialRepository)(nil)

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Seed stores passcode only when no credential exists yet. It reports
// whether a row was written.
func (r *CredentialRepository) Seed(ctx context.Context, passcode string) (bool, error) {
	if passcode == "" {
		return false, nil
	}
	hash, err := auth.HashPassword(passcode)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO admin_credentials (id, passcode_hash, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, q, hash)
	if err != nil {
		return false, fmt.Errorf("failed to seed admin credential: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CredentialRepository) Verify(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var hash string
	err := r.pool.QueryRow(ctx, `SELECT passcode_hash FROM admin_credentials WHERE id = 1`).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load admin credential: %w", err)
	}

	return auth.ComparePassword(password, hash)
}

func (r *CredentialRepository) Update(ctx context.Context, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO admin_credentials (id, passcode_hash, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET
			passcode_hash = EXCLUDED.passcode_hash,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, q, hash); err != nil {
		return fmt.Errorf("failed to update admin credential: %w", err)
	}
	return nil
}
