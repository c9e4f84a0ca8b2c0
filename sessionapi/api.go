// Package sessionapi describes the remote session API consumed by the session
// manager and provides an HTTP client for it.
package sessionapi

import (
	"context"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/sessions"
)

// Errors an API implementation reports. Callers match them with errors.Is.
var (
	ErrUnauthorized    = errors.ErrUnauthorized
	ErrSessionNotFound = errors.ErrSessionNotFound
	ErrSessionExpired  = errors.ErrSessionExpired
	ErrInvalidRequest  = errors.ErrInvalidRequest
)

// Credentials are sent when opening a session.
type Credentials struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"` // Optional initial session payload
}

// API is the set of session operations offered by a session server.
type API interface {
	// Create opens a session. Rejected credentials are not an error: the
	// response has AccessAllowed false and no session id.
	Create(ctx context.Context, creds Credentials) (*sessions.Session, error)

	// Delete closes the session.
	Delete(ctx context.Context, bearer, sessionID string) error

	// Read returns the session payload together with a fresh bearer.
	Read(ctx context.Context, bearer, sessionID string) (*sessions.Session, error)

	// Update replaces the session payload. A nil data clears it.
	Update(ctx context.Context, bearer, sessionID string, data map[string]any) error
}
