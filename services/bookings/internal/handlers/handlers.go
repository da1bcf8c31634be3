package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/papro-bookings/pkg/auth"
	"github.com/diagnosis/papro-bookings/pkg/kv"
	"github.com/diagnosis/papro-bookings/pkg/logger"
	mw "github.com/diagnosis/papro-bookings/pkg/middleware"
	"github.com/diagnosis/papro-bookings/pkg/ratelimit"
	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type Handlers struct {
	availabilityService service.AvailabilityService
	bookingService      service.BookingService
}

func New(availabilityService service.AvailabilityService, bookingService service.BookingService) *Handlers {
	return &Handlers{
		availabilityService: availabilityService,
		bookingService:      bookingService,
	}
}

// RouteOptions carries the cross-cutting pieces the routes depend on.
// Limiter and Idempotency are optional.
type RouteOptions struct {
	Authorizer  auth.Authorizer
	Limiter     *ratelimit.Limiter
	Idempotency kv.Store
}

// Routes mounts the public and admin API under /api.
func (h *Handlers) Routes(r chi.Router, opts RouteOptions) {
	limit := func(p ratelimit.Policy) func(http.Handler) http.Handler {
		if opts.Limiter == nil {
			return passthrough
		}
		return ratelimit.Middleware(opts.Limiter, p, mw.ClientIP)
	}
	idempotent := passthrough
	if opts.Idempotency != nil {
		idempotent = mw.Idempotency(opts.Idempotency)
	}
	admin := auth.RequireAdmin(opts.Authorizer)

	r.Route("/api", func(r chi.Router) {
		r.With(limit(ratelimit.PolicyAvailability)).Get("/availability", h.GetAvailability)
		r.With(admin).Post("/availability", h.ReplaceAvailability)
		r.With(admin).Put("/availability/{date}", h.SetDateSlots)

		r.With(limit(ratelimit.PolicyBooking), idempotent).Post("/booking", h.SubmitBooking)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/bookings", h.ListBookings)
			r.Patch("/bookings", h.TransitionBooking)
		})
	})
}

func passthrough(next http.Handler) http.Handler { return next }

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps service errors onto HTTP responses. fallback is the
// message used for unexpected failures, which are logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, ve.Message)
	case errors.Is(err, domain.ErrInvalidMonth):
		response.BadRequest(w, "Invalid month, expected YYYY-MM")
	case errors.Is(err, domain.ErrSlotUnavailable):
		response.WriteError(w, http.StatusConflict, "Selected time is no longer available", response.CodeSlotUnavailable)
	case errors.Is(err, domain.ErrBookingNotFound):
		response.NotFound(w, "Booking not found")
	default:
		logger.ErrorContext(r.Context(), fallback, "error", err)
		response.InternalError(w, fallback)
	}
}
