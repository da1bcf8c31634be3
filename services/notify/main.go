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
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/papro-bookings/pkg/config"
	"github.com/diagnosis/papro-bookings/pkg/events"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/mailer"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/services/notify/internal/consumer"
)

const port = "8086"

func main() {
	cfg := config.Load()
	if err := run(cfg); err != nil {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Connect to event bus
	bus, err := events.Connect(cfg.Events.Backend, cfg.Events.NATSURL, cfg.Events.AMQPURL)
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := consumer.New(mailer.FromConfig(cfg.Email)).Register(bus); err != nil {
		return err
	}

	checks := map[string]mw.HealthCheck{}
	if p, ok := bus.(interface{ Ping(context.Context) error }); ok {
		checks["events"] = p.Ping
	}

	// Only /healthz is served; work arrives over the bus.
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Recover)
	r.Use(mw.Health(checks))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting notify service", "port", port, "event_bus", cfg.Events.Backend, "queue", consumer.QueueName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notify service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
