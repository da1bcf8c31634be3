package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/handlers"
	"github.com/diagnosis/papro-bookings/services/gateway/internal/proxy"
)

func main() {
	cfg := config.Load()
	if err := run(cfg); err != nil {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	authProxy := proxy.NewServiceProxy("auth", cfg.Services.AuthURL)
	bookingsProxy := proxy.NewServiceProxy("bookings", cfg.Services.BookingsURL)

	h := handlers.New(authProxy, bookingsProxy, handlers.HealthInfo{
		Env:              cfg.Server.Env,
		HasDatabaseURL:   os.Getenv("DATABASE_URL") != "",
		HasAdminPasscode: cfg.Auth.AdminPasscode != "",
		HasMailerSendKey: cfg.Email.MailerSendKey != "",
		HasJWTSecret:     cfg.Auth.JWTSecret != "" && cfg.Auth.JWTSecret != config.DevJWTSecret,
	})

	r := newRouter(cfg, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gateway service", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gateway service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, h *handlers.Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.WithClientIP)
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.SecurityHeaders(cfg.IsProduction()))

	// CORS configuration. Credentials are allowed so the admin session
	// cookie travels with cross-origin requests from the site.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", mw.IdempotencyHeader, auth.PasscodeHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health(nil))

	h.Routes(r)
	return r
}
