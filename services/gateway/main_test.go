package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/handlers"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/proxy"
)

func testRouter(production bool) http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "development"},
		App:    config.AppConfig{AllowedOrigins: []string{"https://papromakeovers.com"}},
	}
	if production {
		cfg.Server.Env = "production"
	}
	h := handlers.New(
		proxy.NewServiceProxy("auth", "http://127.0.0.1:1"),
		proxy.NewServiceProxy("bookings", "http://127.0.0.1:1"),
		handlers.HealthInfo{},
	)
	return newRouter(cfg, h)
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(false)

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"https://papromakeovers.com", "https://papromakeovers.com"},
		{"https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/availability", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "X-Admin-Passcode")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow != "" && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Fatal("credentials not allowed")
			}
		})
	}
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	for _, production := range []bool{false, true} {
		rec := httptest.NewRecorder()
		testRouter(production).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("healthz = %d", rec.Code)
		}
		if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("headers = %v", rec.Header())
		}
		if hsts := rec.Header().Get("Strict-Transport-Security"); (hsts != "") != production {
			t.Fatalf("production=%v HSTS = %q", production, hsts)
		}
	}
}
