package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/diagnosis/papro-bookings/pkg/response"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Health serves /healthz. Each named check runs with a short timeout; any
// failure turns the response into a 503 listing the failing dependency.
func Health(checks map[string]HealthCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			status := http.StatusOK
			deps := make(map[string]string, len(checks))
			for name, check := range checks {
				ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
				err := check(ctx)
				cancel()
				if err != nil {
					deps[name] = err.Error()
					status = http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}

			body := map[string]any{
				"status":    "ok",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}
			if status != http.StatusOK {
				body["status"] = "degraded"
			}
			if len(deps) > 0 {
				body["dependencies"] = deps
			}
			response.JSON(w, status, body)
		})
	}
}
