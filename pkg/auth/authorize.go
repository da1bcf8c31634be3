package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/response"
)

const PasscodeHeader = "X-Admin-Passcode"

// Authorizer decides whether a request carries admin rights. Admin routes
// depend only on this, not on the mechanism behind it.
type Authorizer interface {
	Authorize(r *http.Request) bool
}

// SessionCookieAuthorizer accepts a valid admin-session cookie.
type SessionCookieAuthorizer struct {
	sessions *SessionManager
}

func NewSessionCookieAuthorizer(sessions *SessionManager) *SessionCookieAuthorizer {
	return &SessionCookieAuthorizer{sessions: sessions}
}

func (a *SessionCookieAuthorizer) Authorize(r *http.Request) bool {
	token, ok := SessionTokenFromRequest(r)
	if !ok {
		return false
	}
	_, err := a.sessions.Verify(token)
	return err == nil
}

// PasscodeAuthorizer accepts the shared secret in the X-Admin-Passcode header.
type PasscodeAuthorizer struct {
	passcode []byte
}

func NewPasscodeAuthorizer(passcode string) *PasscodeAuthorizer {
	return &PasscodeAuthorizer{passcode: []byte(passcode)}
}

func (a *PasscodeAuthorizer) Authorize(r *http.Request) bool {
	if len(a.passcode) == 0 {
		return false
	}
	got := r.Header.Get(PasscodeHeader)
	return subtle.ConstantTimeCompare([]byte(got), a.passcode) == 1
}

// NewAuthorizer picks the check for the deployment mode ("session" or "passcode").
func NewAuthorizer(mode string, sessions *SessionManager, passcode string) (Authorizer, error) {
	switch mode {
	case "", "session":
		return NewSessionCookieAuthorizer(sessions), nil
	case "passcode":
		return NewPasscodeAuthorizer(passcode), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// RequireAdmin rejects unauthorized requests with a uniform 401.
func RequireAdmin(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Authorize(r) {
				logger.InfoContext(r.Context(), "Admin authorization failed", "path", r.URL.Path)
				response.Unauthorized(w, "Unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), logger.AdminKey, AdminSubject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
