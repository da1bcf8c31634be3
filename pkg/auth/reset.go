package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/kv"
	"github.com/diagnosis/papro-bookings/pkg/logger"
)

var (
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token expired")
)

const (
	resetKeyPrefix = "reset:"
	resetTokenLen  = 32
	// Records outlive their TTL by this much so an expired token can be
	// reported as expired before it disappears.
	resetRetention = time.Hour
)

type ResetToken struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

// MinutesRemaining rounds up, so a token with 30s left reports 1.
func (t *ResetToken) MinutesRemaining(now time.Time) int {
	left := t.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

type resetRecord struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"` // unix ms
}

// ResetTokens issues single-use password reset tokens backed by a kv.Store.
type ResetTokens struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewResetTokens(store kv.Store, ttl time.Duration) *ResetTokens {
	return &ResetTokens{store: store, ttl: ttl, now: time.Now}
}

func (r *ResetTokens) WithClock(now func() time.Time) *ResetTokens {
	r.now = now
	return r
}

func (r *ResetTokens) TTL() time.Duration {
	return r.ttl
}

// Issue purges expired tokens and stores a fresh one for email.
func (r *ResetTokens) Issue(ctx context.Context, email string) (*ResetToken, error) {
	if n, err := r.PurgeExpired(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to purge expired reset tokens", "error", err)
	} else if n > 0 {
		logger.DebugContext(ctx, "Purged expired reset tokens", "count", n)
	}

	buf := make([]byte, resetTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := r.now().Add(r.ttl)

	data, err := json.Marshal(resetRecord{Email: email, ExpiresAt: expiresAt.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("encoding reset token: %w", err)
	}
	if err := r.store.Set(ctx, resetKeyPrefix+token, data, r.ttl+resetRetention); err != nil {
		return nil, fmt.Errorf("storing reset token: %w", err)
	}

	return &ResetToken{Token: token, Email: email, ExpiresAt: time.UnixMilli(expiresAt.UnixMilli())}, nil
}

// Validate checks a token without consuming it. An expired token is deleted
// and reported once as ErrResetTokenExpired; afterwards it is not found.
func (r *ResetTokens) Validate(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, ErrResetTokenNotFound
	}

	data, err := r.store.Get(ctx, resetKeyPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrResetTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading reset token: %w", err)
	}

	rt, err := decodeReset(token, data)
	if err != nil {
		return nil, err
	}
	if !r.now().Before(rt.ExpiresAt) {
		if err := r.store.Delete(ctx, resetKeyPrefix+token); err != nil {
			logger.WarnContext(ctx, "Failed to delete expired reset token", "error", err)
		}
		return nil, ErrResetTokenExpired
	}
	return rt, nil
}

// Consume atomically removes the token and returns it if it was still valid.
func (r *ResetTokens) Consume(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, ErrResetTokenNotFound
	}

	data, err := r.store.Take(ctx, resetKeyPrefix+token)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrResetTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming reset token: %w", err)
	}

	rt, err := decodeReset(token, data)
	if err != nil {
		return nil, err
	}
	if !r.now().Before(rt.ExpiresAt) {
		return nil, ErrResetTokenExpired
	}
	return rt, nil
}

// PurgeExpired deletes every token past its expiry and returns how many.
func (r *ResetTokens) PurgeExpired(ctx context.Context) (int, error) {
	now := r.now()
	var purged int

	err := r.store.Scan(ctx, resetKeyPrefix, func(key string, value []byte) error {
		var rec resetRecord
		if err := json.Unmarshal(value, &rec); err != nil || !now.Before(time.UnixMilli(rec.ExpiresAt)) {
			if err := r.store.Delete(ctx, key); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	return purged, err
}

func decodeReset(token string, data []byte) (*ResetToken, error) {
	var rec resetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding reset token: %w", err)
	}
	return &ResetToken{Token: token, Email: rec.Email, ExpiresAt: time.UnixMilli(rec.ExpiresAt)}, nil
}
