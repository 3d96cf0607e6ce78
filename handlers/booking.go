package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/services"
)

// GET /api/booking
func (s *Server) listBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := s.bookings.ListBookingsForUser(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err, "Failed to fetch bookings")
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

// POST /api/booking
func (s *Server) createBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in services.CreateBookingInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	booking, err := s.bookings.CreateBooking(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, "Failed to create booking")
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// PATCH /api/booking
func (s *Server) transitionBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in services.TransitionBookingInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	booking, err := s.bookings.TransitionBooking(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, "Failed to update booking")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}
