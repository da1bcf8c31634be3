package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/proxy"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authProxy     *proxy.ServiceProxy
	bookingsProxy *proxy.ServiceProxy
	health        HealthInfo
	now           func() time.Time
}

// HealthInfo reports which pieces of configuration are present, never
// their values.
type HealthInfo struct {
	Env              string `json:"env"`
	HasDatabaseURL   bool   `json:"hasDatabaseUrl"`
	HasAdminPasscode bool   `json:"hasAdminPasscode"`
	HasMailerSendKey bool   `json:"hasMailerSendKey"`
	HasJWTSecret     bool   `json:"hasJwtSecret"`
}

func New(authProxy, bookingsProxy *proxy.ServiceProxy, health HealthInfo) *Handlers {
	return &Handlers{
		authProxy:     authProxy,
		bookingsProxy: bookingsProxy,
		health:        health,
		now:           time.Now,
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Handle("/auth/*", h.Forward(h.authProxy))

		bookings := h.Forward(h.bookingsProxy)
		r.Handle("/availability", bookings)
		r.Handle("/availability/*", bookings)
		r.Handle("/booking", bookings)
		r.Handle("/bookings", bookings)
	})
}

// Forward relays the request to p unchanged and streams the answer back,
// Set-Cookie headers included.
func (h *Handlers) Forward(p *proxy.ServiceProxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		headers := r.Header.Clone()
		headers.Del("X-Real-IP")
		headers.Del("CF-Connecting-IP")
		headers.Set("X-Forwarded-For", proxy.ForwardedFor(r))
		headers.Set("X-Forwarded-Host", r.Host)

		resp, err := p.ProxyRequest(r.Context(), r.Method, r.URL.RequestURI(), r.Body, headers)
		if err != nil {
			logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "service", p.Name(), "path", r.URL.Path)
			response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeUnavailable)
			return
		}
		defer resp.Body.Close()

		proxy.CopyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
		}
	}
}

// Health reports configuration presence and whether each service answers.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		services = make(map[string]string, 2)
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range []*proxy.ServiceProxy{h.authProxy, h.bookingsProxy} {
		g.Go(func() error {
			status := "ok"
			if err := p.Ping(gctx); err != nil {
				logger.WarnContext(r.Context(), "Service health check failed", "service", p.Name(), "error", err)
				status = "unavailable"
			}
			mu.Lock()
			services[p.Name()] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ok", http.StatusOK
	for _, s := range services {
		if s != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	response.JSON(w, code, map[string]any{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"config":    h.health,
		"services":  services,
	})
}
