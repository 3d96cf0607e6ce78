package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/services"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, "Registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in services.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session, err := s.accounts.Login(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := auth.FromContext(r.Context())
	user, err := s.accounts.Me(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"identity": id,
	})
}
