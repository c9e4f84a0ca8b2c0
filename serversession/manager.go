// Package serversession keeps a client's session with a session API alive
// across process restarts. A Manager authenticates through a sessionapi.API,
// mirrors the resulting session record into a storage.Store and restores it
// when a new Manager is built for the same application.
//
// Failures are handled asymmetrically. Connect and Disconnect return API
// errors unchanged. GetSessionData, SetSessionData and Refresh treat any API
// error as the session having been invalidated: the local session is cleared
// and the error is not returned.
package serversession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-server-session/sessionapi"
	"github.com/jrsteele09/go-server-session/sessions"
	"github.com/jrsteele09/go-server-session/storage"
	"github.com/jrsteele09/go-server-session/token"
)

// DefaultApplication namespaces the storage key when Config.Application is empty.
const DefaultApplication = "app"

// Config configures a Manager.
type Config struct {
	Application string          // Application identifier, used only to derive the storage key
	Logger      *zerolog.Logger // Defaults to the global zerolog logger
}

// StorageKey returns the persistence key for application.
func StorageKey(application string) string {
	if application == "" {
		application = DefaultApplication
	}
	return "session-" + application
}

// Manager owns one session record and keeps the store in step with it.
// Operations on one Manager are serialised; each holds opMu across its API
// call. stateMu guards bearer and session only, so the accessors never wait on
// the network.
type Manager struct {
	api    sessionapi.API
	store  storage.Store
	key    string
	logger *zerolog.Logger

	opMu    sync.Mutex
	stateMu sync.RWMutex
	bearer  string
	session *sessions.Session
}

// New builds a Manager and restores any session persisted for the
// application. A missing, unreadable or corrupt snapshot leaves the Manager
// disconnected; the failure is logged and never returned.
func New(ctx context.Context, cfg Config, api sessionapi.API, store storage.Store) *Manager {
	m := &Manager{
		api:    api,
		store:  store,
		key:    StorageKey(cfg.Application),
		logger: cfg.Logger,
	}
	if m.logger == nil {
		m.logger = &log.Logger
	}

	if err := m.load(ctx); err != nil {
		m.logger.Error().Err(err).Str("key", m.key).Msg("failed to restore session")
		m.setSession(nil)
	}
	return m
}

// Connect opens a new session. An existing session is closed first. The
// returned bearer is always adopted; the record is kept only when access was
// allowed. The raw API response is returned.
func (m *Manager) Connect(ctx context.Context, username, password string, data map[string]any) (*sessions.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.connected() {
		if err := m.disconnect(ctx); err != nil {
			m.logger.Warn().Err(err).Str("session_id", m.session.ID()).Msg("failed to close previous session")
		}
	}

	resp, err := m.api.Create(ctx, sessionapi.Credentials{Username: username, Password: password, Data: data})
	if err != nil {
		return nil, err
	}

	var s *sessions.Session
	if resp.AccessAllowed {
		s = resp.Clone()
	}
	m.stateMu.Lock()
	m.bearer = resp.Bearer
	m.session = s
	m.stateMu.Unlock()
	if err := m.save(ctx); err != nil {
		return resp, err
	}
	return resp, nil
}

// Disconnect closes the current session. It does nothing when not connected.
// When the API call fails the local session is kept and the error returned.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.connected() {
		return nil
	}
	return m.disconnect(ctx)
}

// Connected reports whether a session with an id is held. It never touches the
// store or the network.
func (m *Manager) Connected() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.connected()
}

// Refresh re-reads the session to pick up a fresh bearer, discarding the payload.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err := m.GetSessionData(ctx)
	return err
}

// GetSessionData returns the session payload, or nil when not connected. A
// failed read invalidates the session and yields nil. The error is non-nil
// only when the store could not be updated.
func (m *Manager) GetSessionData(ctx context.Context) (map[string]any, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.connected() {
		return nil, nil
	}

	resp, err := m.api.Read(ctx, m.bearer, m.session.ID())
	if err != nil {
		m.invalidate(err)
		return nil, m.save(ctx)
	}

	m.stateMu.Lock()
	m.bearer = resp.Bearer
	m.session.Bearer = resp.Bearer
	m.stateMu.Unlock()
	if err := m.save(ctx); err != nil {
		return resp.Data, err
	}
	return resp.Data, nil
}

// SetSessionData replaces the session payload. It does nothing when not
// connected. A failed update invalidates the session. The error is non-nil only
// when the store could not be updated.
func (m *Manager) SetSessionData(ctx context.Context, data map[string]any) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.connected() {
		return nil
	}

	if err := m.api.Update(ctx, m.bearer, m.session.ID(), data); err != nil {
		m.invalidate(err)
		return m.save(ctx)
	}
	return nil
}

// Bearer returns the bearer currently used for API calls. It may be set while
// disconnected, after a refused Connect.
func (m *Manager) Bearer() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.bearer
}

// Session returns a copy of the current session record, or nil.
func (m *Manager) Session() *sessions.Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.session.Clone()
}

// BearerExpiry returns the expiry of a JWT bearer, read without verification.
func (m *Manager) BearerExpiry() (time.Time, bool) {
	return token.Expiry(m.Bearer())
}

// StorageKey returns the key this Manager persists under.
func (m *Manager) StorageKey() string {
	return m.key
}

// connected needs opMu or stateMu held.
func (m *Manager) connected() bool {
	return m.session.HasSession()
}

func (m *Manager) setSession(s *sessions.Session) {
	m.stateMu.Lock()
	m.session = s
	m.stateMu.Unlock()
}

func (m *Manager) disconnect(ctx context.Context) error {
	if err := m.api.Delete(ctx, m.bearer, m.session.ID()); err != nil {
		return err
	}
	m.setSession(nil)
	return m.save(ctx)
}

func (m *Manager) invalidate(cause error) {
	m.logger.Debug().Err(cause).Str("session_id", m.session.ID()).Msg("session invalidated")
	m.setSession(nil)
}

func (m *Manager) load(ctx context.Context) error {
	snapshot, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("[serversession load] %w", err)
	}
	if !ok {
		m.setSession(nil)
		if err := m.store.Remove(ctx, m.key); err != nil {
			return fmt.Errorf("[serversession load] %w", err)
		}
		return nil
	}

	s, err := sessions.Decode(snapshot)
	if err != nil {
		return fmt.Errorf("[serversession load] %w", err)
	}
	m.stateMu.Lock()
	m.session = s
	if s != nil {
		m.bearer = s.Bearer
	}
	m.stateMu.Unlock()
	return nil
}

// save writes the session when connected and removes the slot otherwise.
func (m *Manager) save(ctx context.Context) error {
	if !m.connected() {
		if err := m.store.Remove(ctx, m.key); err != nil {
			return fmt.Errorf("[serversession save] %w", err)
		}
		return nil
	}

	snapshot, err := sessions.Encode(m.session)
	if err != nil {
		return fmt.Errorf("[serversession save] %w", err)
	}
	if err := m.store.Set(ctx, m.key, snapshot); err != nil {
		return fmt.Errorf("[serversession save] %w", err)
	}
	return nil
}
