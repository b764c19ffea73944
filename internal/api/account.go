package api

import (
	"errors"
	"net/http"

	"github.com/rbaliyan/webmail/directory"
)

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates the account and logs the new user in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON.")
		return
	}
	u, err := s.dir.Register(r.Context(), directory.RegisterRequest{
		Email:        req.Email,
		Password:     req.Password,
		Confirmation: req.Confirmation,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	switch {
	case errors.Is(err, directory.ErrPasswordMismatch):
		respondError(w, http.StatusBadRequest, "Passwords must match.")
		return
	case errors.Is(err, directory.ErrUserExists):
		respondError(w, http.StatusBadRequest, "Email address already taken.")
		return
	case errors.Is(err, directory.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, "Invalid email address.")
		return
	case errors.Is(err, directory.ErrEmptyPassword):
		respondError(w, http.StatusBadRequest, "Password required.")
		return
	case err != nil:
		s.respondInternal(w, r, "register", err)
		return
	}

	if !s.startSession(w, r, u.Email) {
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"email": u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON.")
		return
	}
	u, err := s.dir.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, directory.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "Invalid email and/or password.")
		return
	}
	if err != nil {
		s.respondInternal(w, r, "login", err)
		return
	}
	if !s.startSession(w, r, u.Email) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"email": u.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.sessions.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, email string) bool {
	token, err := s.sessions.issue(email)
	if err != nil {
		s.respondInternal(w, r, "issue session", err)
		return false
	}
	s.sessions.set(w, token)
	return true
}
