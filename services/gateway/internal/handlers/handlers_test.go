package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/papro-bookings/services/gateway/internal/handlers"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/proxy"
)

type seenRequest struct {
	method, uri, cookie, passcode, forwardedFor, realIP, body string
}

func backend(t *testing.T, name string, seen *seenRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		*seen = seenRequest{
			method:       r.Method,
			uri:          r.URL.RequestURI(),
			cookie:       r.Header.Get("Cookie"),
			passcode:     r.Header.Get("X-Admin-Passcode"),
			forwardedFor: r.Header.Get("X-Forwarded-For"),
			realIP:       r.Header.Get("X-Real-IP"),
			body:         string(body),
		}
		http.SetCookie(w, &http.Cookie{Name: "admin-session", Value: "tok", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"service":"`+name+`"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupGateway(t *testing.T) (*httptest.Server, *seenRequest, *seenRequest) {
	t.Helper()
	var authSeen, bookingsSeen seenRequest
	authSrv := backend(t, "auth", &authSeen)
	bookingsSrv := backend(t, "bookings", &bookingsSeen)

	h := handlers.New(
		proxy.NewServiceProxy("auth", authSrv.URL),
		proxy.NewServiceProxy("bookings", bookingsSrv.URL),
		handlers.HealthInfo{Env: "test", HasAdminPasscode: true},
	)
	r := chi.NewRouter()
	h.Routes(r)
	gw := httptest.NewServer(r)
	t.Cleanup(gw.Close)
	return gw, &authSeen, &bookingsSeen
}

func TestForwardRoutesByPrefix(t *testing.T) {
	gw, authSeen, bookingsSeen := setupGateway(t)

	tests := []struct {
		method, path string
		wantService  string
	}{
		{http.MethodPost, "/api/auth/login", "auth"},
		{http.MethodGet, "/api/auth/verify-reset?token=abc", "auth"},
		{http.MethodGet, "/api/availability?month=2025-06", "bookings"},
		{http.MethodPut, "/api/availability/2025-06-14", "bookings"},
		{http.MethodPost, "/api/booking", "bookings"},
		{http.MethodPatch, "/api/bookings", "bookings"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, gw.URL+tt.path, strings.NewReader(`{"x":1}`))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			var body map[string]string
			json.NewDecoder(resp.Body).Decode(&body)
			if resp.StatusCode != http.StatusCreated || body["service"] != tt.wantService {
				t.Fatalf("got %d %v", resp.StatusCode, body)
			}

			seen := bookingsSeen
			if tt.wantService == "auth" {
				seen = authSeen
			}
			if seen.uri != tt.path || seen.method != tt.method {
				t.Fatalf("backend saw %s %s", seen.method, seen.uri)
			}
		})
	}
}

func TestForwardKeepsCredentials(t *testing.T) {
	gw, _, bookingsSeen := setupGateway(t)

	req, _ := http.NewRequest(http.MethodPost, gw.URL+"/api/availability", strings.NewReader(`{"month":"2025-06"}`))
	req.Header.Set("X-Admin-Passcode", "studio")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.AddCookie(&http.Cookie{Name: "admin-session", Value: "abc"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if bookingsSeen.passcode != "studio" || bookingsSeen.cookie != "admin-session=abc" {
		t.Fatalf("backend saw %+v", bookingsSeen)
	}
	if bookingsSeen.forwardedFor != "127.0.0.1" {
		t.Fatalf("X-Forwarded-For = %q, want the gateway's peer only", bookingsSeen.forwardedFor)
	}
	if bookingsSeen.body != `{"month":"2025-06"}` {
		t.Fatalf("body = %q", bookingsSeen.body)
	}
	if len(resp.Cookies()) != 1 || resp.Cookies()[0].Name != "admin-session" {
		t.Fatalf("Set-Cookie not relayed: %v", resp.Header["Set-Cookie"])
	}
}

func TestForwardIgnoresClientSuppliedAddresses(t *testing.T) {
	gw, authSeen, _ := setupGateway(t)

	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		req, _ := http.NewRequest(http.MethodPost, gw.URL+"/api/auth/login", strings.NewReader(`{"password":"x"}`))
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		if authSeen.forwardedFor != "127.0.0.1" || authSeen.realIP != "" {
			t.Fatalf("spoofed %s reached auth as XFF=%q X-Real-IP=%q", spoofed, authSeen.forwardedFor, authSeen.realIP)
		}
	}
}

func TestForwardServiceDown(t *testing.T) {
	h := handlers.New(
		proxy.NewServiceProxy("auth", "http://127.0.0.1:1"),
		proxy.NewServiceProxy("bookings", "http://127.0.0.1:1"),
		handlers.HealthInfo{},
	)
	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/availability", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	gw, _, _ := setupGateway(t)

	resp, err := http.Get(gw.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status   string            `json:"status"`
		Config   map[string]any    `json:"config"`
		Services map[string]string `json:"services"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Fatalf("got %d %+v", resp.StatusCode, body)
	}
	if body.Config["hasAdminPasscode"] != true || body.Config["hasJwtSecret"] != false || body.Config["env"] != "test" {
		t.Fatalf("config = %v", body.Config)
	}
	if body.Services["auth"] != "ok" || body.Services["bookings"] != "ok" {
		t.Fatalf("services = %v", body.Services)
	}
}
