// Package api serves the mailbox over JSON HTTP endpoints with cookie
// sessions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/directory"
)

type ctxKey struct{}

// Server is an http.Handler for the webmail API.
type Server struct {
	svc      webmail.Service
	dir      *directory.Directory
	sessions *sessions
	limiter  *ipLimiter
	opts     *options
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New builds the route table.
func New(svc webmail.Service, dir *directory.Directory, opts ...Option) (*Server, error) {
	if svc == nil || dir == nil {
		return nil, errors.New("api: service and directory are required")
	}
	o := newOptions(opts...)
	sess, err := newSessions(o)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	s := &Server{
		svc:      svc,
		dir:      dir,
		sessions: sess,
		limiter:  newIPLimiter(o.rateRequests, o.ratePer, o.clock),
		opts:     o,
		logger:   o.logger,
		mux:      http.NewServeMux(),
	}

	limited := s.limiter.middleware
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /register", limited(s.handleRegister))
	s.mux.HandleFunc("POST /login", limited(s.handleLogin))
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("POST /emails", limited(s.requireSession(s.handleCompose)))
	s.mux.HandleFunc("GET /emails/{key}", s.requireSession(s.handleFolderOrEntry))
	s.mux.HandleFunc("PUT /emails/{id}", limited(s.requireSession(s.handleUpdate)))
	s.mux.HandleFunc("POST /export/{folder}", limited(s.requireSession(s.handleExport)))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.maxBodyBytes)
	}
	s.mux.ServeHTTP(w, r)
}

// requireSession puts the caller's mailbox in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := s.sessions.fromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, s.svc.Client(email))
		next(w, r.WithContext(ctx))
	}
}

func mailboxFrom(ctx context.Context) webmail.Mailbox {
	mb, _ := ctx.Value(ctxKey{}).(webmail.Mailbox)
	return mb
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.svc.IsConnected() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondInternal logs err and hides it from the client. Service shutdown
// maps to 503.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, webmail.ErrNotConnected) {
		respondError(w, http.StatusServiceUnavailable, "Service unavailable.")
		return
	}
	s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "Internal server error.")
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
