package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/ratelimit"
	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/auth/internal/domain"
	"github.com/diagnosis/papro-bookings/services/auth/internal/service"
)

const maxBodyBytes = 16 << 10

type Handlers struct {
	adminService service.AdminService
	// secureCookies marks session cookies Secure. Set in production.
	secureCookies bool
}

func New(adminService service.AdminService, secureCookies bool) *Handlers {
	return &Handlers{
		adminService:  adminService,
		secureCookies: secureCookies,
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Delete("/login", h.Logout)
		r.Get("/session", h.Session)
		r.Post("/reset", h.RequestReset)
		r.Get("/verify-reset", h.VerifyResetToken)
		r.Post("/verify-reset", h.ResetPassword)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// waitMessage renders a retry delay as "N minute(s)" rounded up.
func waitMessage(d time.Duration) string {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// writeLimited answers a *ratelimit.LimitedError. It reports false for any
// other error.
func writeLimited(w http.ResponseWriter, err error, errMsg, action string) bool {
	var limited *ratelimit.LimitedError
	if !errors.As(err, &limited) {
		return false
	}
	response.RateLimitWithMessage(w, errMsg,
		fmt.Sprintf("Please wait %s before %s.", waitMessage(limited.RetryAfter), action),
		limited.RetryAfter)
	return true
}

func writeValidation(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	response.BadRequest(w, ve.Message)
	return true
}

func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	logger.ErrorContext(r.Context(), "Auth request failed", "error", err, "path", r.URL.Path)
	response.WriteErrorMessage(w, http.StatusInternalServerError, "Internal server error",
		response.CodeInternalError, "An unexpected error occurred. Please try again.")
}

func (h *Handlers) setSession(w http.ResponseWriter, res *domain.LoginResult) {
	auth.SetSessionCookie(w, res.Token, res.MaxAge, h.secureCookies)
}
