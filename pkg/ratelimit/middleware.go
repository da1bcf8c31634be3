package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/papro-bookings/pkg/response"
)

// Middleware applies policy p per identity returned by keyFunc and reports
// the window state in X-RateLimit-* headers.
func Middleware(l *Limiter, p Policy, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Check(r.Context(), keyFunc(r), p)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				response.RateLimit(w, "Too many requests. Please try again later.", res.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
