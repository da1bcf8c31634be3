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
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/pkg/database"
	"github.com/diagnosis/papro-bookings/pkg/events"
	"github.com/diagnosis/papro-bookings/pkg/kv"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/pkg/ratelimit"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/handlers"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/repository"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/service"
)

const port = "8082"

func main() {
	cfg := config.Load()
	if err := run(cfg); err != nil {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Auth.KVBackend == "redis" || cfg.RateLimit.Backend == ratelimit.BackendRedis {
		if redisClient, err = kv.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	store, err := kv.New(cfg.Auth.KVBackend, redisClient, "bookings")
	if err != nil {
		return err
	}
	limitStore, err := ratelimit.NewStore(cfg.RateLimit.Backend, redisClient, pool)
	if err != nil {
		return err
	}

	// Connect to event bus
	bus, err := events.Connect(cfg.Events.Backend, cfg.Events.NATSURL, cfg.Events.AMQPURL)
	if err != nil {
		return err
	}
	defer bus.Close()

	var notifier service.Notifier
	switch cfg.Notify.Mode {
	case "direct":
		async := service.NewAsyncNotifier(service.NewMailNotifier(mailer.FromConfig(cfg.Email)), 30*time.Second)
		defer async.Wait()
		notifier = async
	default:
		notifier = service.NewEventNotifier(bus)
	}

	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL)
	authorizer, err := auth.NewAuthorizer(cfg.Auth.Mode, sessions, cfg.Auth.AdminPasscode)
	if err != nil {
		return err
	}

	// Initialize repositories and services
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	h := handlers.New(
		service.NewAvailabilityService(availabilityRepo),
		service.NewBookingService(bookingRepo, availabilityRepo, notifier),
	)

	checks := map[string]mw.HealthCheck{"postgres": pool.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if p, ok := bus.(interface{ Ping(context.Context) error }); ok {
		checks["events"] = p.Ping
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.WithClientIP)
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health(checks))

	h.Routes(r, handlers.RouteOptions{
		Authorizer:  authorizer,
		Limiter:     ratelimit.New(limitStore),
		Idempotency: store,
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting bookings service", "port", port, "auth_mode", cfg.Auth.Mode, "event_bus", cfg.Events.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return ratelimit.RunCleaner(gctx, limitStore, 5*time.Minute)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down bookings service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
