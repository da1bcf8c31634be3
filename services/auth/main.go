package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/pkg/database"
	"github.com/diagnosis/papro-bookings/pkg/kv"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/pkg/ratelimit"
	"github.com/diagnosis/papro-bookings/services/auth/internal/handlers"
	"github.com/diagnosis/papro-bookings/services/auth/internal/repository"
	"github.com/diagnosis/papro-bookings/services/auth/internal/service"
)

const port = "8081"

func main() {
	cfg := config.Load()
	if err := run(cfg); err != nil {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.IsProduction() && cfg.Auth.JWTSecret == config.DevJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}

	// Postgres is only needed for durable credentials or postgres rate limits.
	var pool *pgxpool.Pool
	if cfg.Auth.CredentialStore == "postgres" || cfg.RateLimit.Backend == ratelimit.BackendPostgres {
		var err error
		if pool, err = database.Connect(ctx, cfg.Database); err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
		}
	}

	var redisClient *redis.Client
	if cfg.Auth.KVBackend == "redis" || cfg.RateLimit.Backend == ratelimit.BackendRedis {
		var err error
		if redisClient, err = kv.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	credentials, err := newCredentialStore(ctx, cfg, pool)
	if err != nil {
		return err
	}
	store, err := kv.New(cfg.Auth.KVBackend, redisClient, "auth")
	if err != nil {
		return err
	}
	limitStore, err := ratelimit.NewStore(cfg.RateLimit.Backend, redisClient, pool)
	if err != nil {
		return err
	}

	svc := service.NewAdminService(
		credentials,
		auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL),
		auth.NewResetTokens(store, cfg.Auth.ResetTokenTTL),
		ratelimit.New(limitStore),
		mailer.FromConfig(cfg.Email),
		service.AdminConfig{AdminEmail: cfg.Auth.AdminEmail, BaseURL: cfg.App.BaseURL},
	)

	checks := map[string]mw.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.WithClientIP)
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health(checks))

	handlers.New(svc, cfg.IsProduction()).Routes(r)

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
		logger.Info("Starting auth service", "port", port, "credential_store", cfg.Auth.CredentialStore, "kv_backend", cfg.Auth.KVBackend)
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
		logger.Info("Shutting down auth service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newCredentialStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (auth.CredentialStore, error) {
	switch cfg.Auth.CredentialStore {
	case "memory", "":
		if cfg.Auth.AdminPasscode == "" {
			logger.Warn("ADMIN_PASSCODE is not set, admin login is disabled until a reset")
		}
		store, err := auth.NewMemoryCredentialStore(cfg.Auth.AdminPasscode)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		repo := repository.NewCredentialRepository(pool)
		seeded, err := repo.Seed(ctx, cfg.Auth.AdminPasscode)
		if err != nil {
			return nil, err
		}
		if seeded {
			logger.Info("Seeded admin credential from ADMIN_PASSCODE")
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Auth.CredentialStore)
	}
}
