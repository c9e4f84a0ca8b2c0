package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/sessionapi"
)

const (
	maxBodyBytes = 1 << 20

	opCreate = "create"
	opRead   = "read"
	opUpdate = "update"
	opDelete = "delete"
)

// CreateSessionHandler opens a session (POST /api/session). Refused
// credentials are answered with 200 and accessAllowed false.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var creds sessionapi.Credentials
		if err := decodeBody(r, &creds); err != nil {
			s.fail(w, r, opCreate, start, err)
			return
		}

		session, err := s.api.Create(r.Context(), creds)
		if err != nil {
			s.fail(w, r, opCreate, start, err)
			return
		}
		if !session.AccessAllowed {
			s.metrics.refused.Inc()
		}
		s.metrics.observe(opCreate, start, nil)
		writeJSON(w, http.StatusOK, session)
	}
}

// ReadSessionHandler returns the session payload and a fresh bearer (GET /api/session/{id}).
func (s *Server) ReadSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		session, err := s.api.Read(r.Context(), bearerFromRequest(r), r.PathValue("id"))
		if err != nil {
			s.fail(w, r, opRead, start, err)
			return
		}
		s.metrics.observe(opRead, start, nil)
		writeJSON(w, http.StatusOK, session)
	}
}

// UpdateSessionHandler replaces the session payload (PUT /api/session/{id}).
// A JSON null body clears it.
func (s *Server) UpdateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var data map[string]any
		if err := decodeBody(r, &data); err != nil {
			s.fail(w, r, opUpdate, start, err)
			return
		}

		if err := s.api.Update(r.Context(), bearerFromRequest(r), r.PathValue("id"), data); err != nil {
			s.fail(w, r, opUpdate, start, err)
			return
		}
		s.metrics.observe(opUpdate, start, nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteSessionHandler closes the session (DELETE /api/session/{id}).
func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if err := s.api.Delete(r.Context(), bearerFromRequest(r), r.PathValue("id")); err != nil {
			s.fail(w, r, opDelete, start, err)
			return
		}
		s.metrics.observe(opDelete, start, nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, start time.Time, err error) {
	s.metrics.observe(operation, start, err)

	status := sessionapi.StatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("operation", operation).
			Str("request_id", r.Header.Get(sessionapi.HeaderRequestID)).
			Msg("session api request failed")
		msg = http.StatusText(status)
	} else if s.env == "DEV" {
		logError(r.Method, r.URL.Path, msg)
	}
	writeJSON(w, status, sessionapi.ErrorBody{Error: msg})
}

func bearerFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", sessionapi.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}
