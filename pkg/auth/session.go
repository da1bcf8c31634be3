package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for any unusable token. Callers never learn
// whether the signature, structure or expiry was at fault.
var ErrInvalidSession = errors.New("invalid session")

const (
	AdminSubject    = "admin"
	sessionAudience = "papro-admin"
)

type SessionClaims struct {
	AdminID     string `json:"adminId"`
	Email       string `json:"email"`
	LoginTime   int64  `json:"loginTime"` // unix ms
	RememberMe  bool   `json:"rememberMe"`
	ExpiresAtMs int64  `json:"expiresAt"` // unix ms
	jwt.RegisteredClaims
}

type Session struct {
	AdminID    string    `json:"adminId"`
	Email      string    `json:"email"`
	LoginTime  time.Time `json:"loginTime"`
	RememberMe bool      `json:"rememberMe"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SessionManager issues and verifies self-contained HS256 session tokens.
type SessionManager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewSessionManager(secret string, ttl, rememberTTL time.Duration) *SessionManager {
	return &SessionManager{
		secret:      []byte(secret),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Duration is the lifetime of a session with the given remember flag.
func (m *SessionManager) Duration(rememberMe bool) time.Duration {
	if rememberMe {
		return m.rememberTTL
	}
	return m.ttl
}

func (m *SessionManager) Issue(adminID, email string, rememberMe bool) (string, *Session, error) {
	now := m.now()
	expiresAt := now.Add(m.Duration(rememberMe))

	claims := SessionClaims{
		AdminID:     adminID,
		Email:       email,
		LoginTime:   now.UnixMilli(),
		RememberMe:  rememberMe,
		ExpiresAtMs: expiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Audience:  []string{sessionAudience},
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing session token: %w", err)
	}

	return token, &Session{
		AdminID:    adminID,
		Email:      email,
		LoginTime:  time.UnixMilli(claims.LoginTime),
		RememberMe: rememberMe,
		ExpiresAt:  time.UnixMilli(claims.ExpiresAtMs),
	}, nil
}

func (m *SessionManager) Verify(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSession
	}

	// The embedded expiry is checked on its own as well as the exp claim.
	if claims.ExpiresAtMs <= 0 || m.now().UnixMilli() >= claims.ExpiresAtMs {
		return nil, ErrInvalidSession
	}
	if claims.AdminID == "" {
		return nil, ErrInvalidSession
	}

	return &Session{
		AdminID:    claims.AdminID,
		Email:      claims.Email,
		LoginTime:  time.UnixMilli(claims.LoginTime),
		RememberMe: claims.RememberMe,
		ExpiresAt:  time.UnixMilli(claims.ExpiresAtMs),
	}, nil
}
