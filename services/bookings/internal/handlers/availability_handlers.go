package handlers

import (
	"net/http"

	"github.com/diagnosis/papro-bookings/pkg/response"
	"github.com/diagnosis/papro-bookings/services/bookings/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GetAvailability serves the public calendar for ?month=YYYY-MM.
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	month, err := h.availabilityService.GetMonth(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load availability")
		return
	}
	response.JSON(w, http.StatusOK, month)
}

// ReplaceAvailability overwrites a whole month with the admin's selection.
func (h *Handlers) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	var req domain.AvailabilityUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	if err := h.availabilityService.ReplaceMonth(r.Context(), req); err != nil {
		writeServiceError(w, r, err, "Failed to save availability")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) SetDateSlots(w http.ResponseWriter, r *http.Request) {
	var req domain.SlotsUpdate
	if err := decodeJSON(w, r, &req); err != nil || req.Slots == nil {
		response.BadRequest(w, "Invalid payload")
		return
	}

	date := chi.URLParam(r, "date")
	slots, err := h.availabilityService.SetSlots(r.Context(), date, req.Slots)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save slots")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"date":  date,
		"slots": slots,
	})
}
