package handlers

import (
	"net/http"

	"github.com/diagnosis/papro-bookings/pkg/logger"
	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
)

// SubmitBooking handles the public booking form.
func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	res, err := h.bookingService.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create booking")
		return
	}
	if res.NotificationErr != nil {
		logger.WarnContext(r.Context(), "Booking accepted without confirmation email", "booking_id", res.Booking.ID)
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"booking": res.Booking,
	})
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListByMonth(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load bookings")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// TransitionBooking applies accept or cancel to one booking.
func (h *Handlers) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ID <= 0 {
		response.BadRequest(w, "Invalid payload")
		return
	}
	action, ok := domain.ParseBookingAction(req.Action)
	if !ok {
		response.BadRequest(w, "Unsupported action")
		return
	}

	booking, err := h.bookingService.Transition(r.Context(), req.ID, action)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update booking")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"booking": booking,
	})
}
