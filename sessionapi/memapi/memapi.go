// Package memapi is an in-memory session API. It backs the development server
// and lets the session manager be tested without a network.
package memapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/internal/utils"
	"github.com/jrsteele09/go-server-session/sessionapi"
	"github.com/jrsteele09/go-server-session/sessions"
	"github.com/jrsteele09/go-server-session/token"
	"github.com/jrsteele09/go-server-session/users"
)

// AnonymousSubject is the subject of bearers handed out for refused logins.
const AnonymousSubject = "anonymous"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ sessionapi.API = (*MemAPI)(nil)

// sessionData is the server side state of one session.
type sessionData struct {
	ID        string
	UserID    string
	Username  string
	Data      map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time
}

type MemAPI struct {
	users    users.UserRepo
	issuer   *token.Issuer
	ttl      time.Duration
	sessions map[string]*sessionData
	lock     sync.RWMutex
}

// New returns an API authenticating against userRepo. Sessions live for
// sessionTTL from creation.
func New(userRepo users.UserRepo, issuer *token.Issuer, sessionTTL time.Duration) *MemAPI {
	return &MemAPI{
		users:    userRepo,
		issuer:   issuer,
		ttl:      sessionTTL,
		sessions: make(map[string]*sessionData),
	}
}

func (m *MemAPI) Create(_ context.Context, creds sessionapi.Credentials) (*sessions.Session, error) {
	user, err := users.Authenticate(m.users, creds.Username, creds.Password)
	if err != nil && !users.IsLoginRefused(err) {
		return nil, fmt.Errorf("[memapi Create] %w", err)
	}
	if err != nil {
		log.Debug().Err(err).Str("username", creds.Username).Msg("login refused")
		bearer, err := m.issuer.Issue(AnonymousSubject, "")
		if err != nil {
			return nil, fmt.Errorf("[memapi Create] %w", err)
		}
		return &sessions.Session{Bearer: bearer, AccessAllowed: false}, nil
	}

	now := NowTimeFunc()
	sd := &sessionData{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		Data:      sessions.CloneData(creds.Data),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	bearer, err := m.issuer.Issue(user.ID, sd.ID)
	if err != nil {
		return nil, fmt.Errorf("[memapi Create] %w", err)
	}

	m.lock.Lock()
	m.sessions[sd.ID] = sd
	m.lock.Unlock()

	if err := m.users.SetLastLogin(user.Username); err != nil {
		return nil, fmt.Errorf("[memapi Create] %w", err)
	}
	return sd.toSession(bearer), nil
}

func (m *MemAPI) Delete(_ context.Context, bearer, sessionID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, err := m.authorise(bearer, sessionID); err != nil {
		return err
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemAPI) Read(_ context.Context, bearer, sessionID string) (*sessions.Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	sd, err := m.authorise(bearer, sessionID)
	if err != nil {
		return nil, err
	}
	fresh, err := m.issuer.Issue(sd.UserID, sd.ID)
	if err != nil {
		return nil, fmt.Errorf("[memapi Read] %w", err)
	}
	return sd.toSession(fresh), nil
}

func (m *MemAPI) Update(_ context.Context, bearer, sessionID string, data map[string]any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	sd, err := m.authorise(bearer, sessionID)
	if err != nil {
		return err
	}
	sd.Data = sessions.CloneData(data)
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and returns
// how many were removed.
func (m *MemAPI) DeleteExpiredSessions(now time.Time) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	removed := 0
	for id, sd := range m.sessions {
		if !now.Before(sd.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *MemAPI) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.sessions)
}

// authorise checks bearer against sessionID. Caller must hold the write lock
// because expired sessions are dropped on access.
func (m *MemAPI) authorise(bearer, sessionID string) (*sessionData, error) {
	claims, err := m.issuer.Verify(bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrUnauthorized, err)
	}
	if claims.SessionID == "" || claims.SessionID != sessionID {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "bearer not issued for session %s", sessionID)
	}

	sd, ok := m.sessions[sessionID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "session %s", sessionID)
	}
	if !NowTimeFunc().Before(sd.ExpiresAt) {
		delete(m.sessions, sessionID)
		return nil, errors.Wrapf(errors.ErrSessionExpired, "session %s", sessionID)
	}
	return sd, nil
}

func (sd *sessionData) toSession(bearer string) *sessions.Session {
	extra := map[string]json.RawMessage{}
	if b, err := json.Marshal(sd.Username); err == nil {
		extra["username"] = b
	}
	if b, err := json.Marshal(sd.ExpiresAt.UTC().Format(time.RFC3339)); err == nil {
		extra["expires"] = b
	}
	return &sessions.Session{
		SessionID:     utils.Ptr(sd.ID),
		Bearer:        bearer,
		AccessAllowed: true,
		Data:          sessions.CloneData(sd.Data),
		Extra:         extra,
	}
}
