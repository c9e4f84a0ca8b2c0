package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-server-session/internal/config"
	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/server"
	"github.com/jrsteele09/go-server-session/serversession"
	"github.com/jrsteele09/go-server-session/sessionapi"
	"github.com/jrsteele09/go-server-session/sessionapi/memapi"
	"github.com/jrsteele09/go-server-session/sessions"
	"github.com/jrsteele09/go-server-session/storage/memstore"
	"github.com/jrsteele09/go-server-session/token"
	"github.com/jrsteele09/go-server-session/users"
	fakeuserrepo "github.com/jrsteele09/go-server-session/users/repofake"
)

const (
	testUsername = "alice"
	testPassword = "pw"
	testOrigin   = "http://app.example.com"
)

type testFixture struct {
	httpServer *httptest.Server
	api        *memapi.MemAPI
	client     *sessionapi.HTTPClient
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("ALLOWED_ORIGINS", testOrigin)

	repo := fakeuserrepo.NewFakeUserRepo()
	u, err := users.NewUser(testUsername, testPassword)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(u))

	api := memapi.New(repo, token.NewIssuer(token.NewHMACSigner("secret"), "test", time.Minute), time.Hour)
	return setupWithAPI(t, api)
}

func setupWithAPI(t *testing.T, api sessionapi.API) *testFixture {
	t.Helper()
	srv, err := server.New(config.New(), api, prometheus.NewRegistry())
	require.NoError(t, err)

	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	logger := zerolog.Nop()
	f := &testFixture{
		httpServer: hs,
		client:     sessionapi.NewHTTPClient(hs.URL+"/", sessionapi.WithHTTPClient(hs.Client()), sessionapi.WithLogger(&logger)),
	}
	if m, ok := api.(*memapi.MemAPI); ok {
		f.api = m
	}
	return f
}

func (f *testFixture) newManager(t *testing.T, store *memstore.MemStore) *serversession.Manager {
	t.Helper()
	logger := zerolog.Nop()
	return serversession.New(context.Background(), serversession.Config{Application: "web", Logger: &logger}, f.client, store)
}

func TestServer_ManagerLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	store := memstore.New()
	m := f.newManager(t, store)

	resp, err := m.Connect(ctx, testUsername, testPassword, map[string]any{})
	require.NoError(t, err)
	require.True(t, resp.AccessAllowed)
	require.True(t, m.Connected())
	firstBearer := m.Bearer()

	require.NoError(t, m.SetSessionData(ctx, map[string]any{"k": 1}))

	data, err := m.GetSessionData(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k": float64(1)}, data)
	require.NotEmpty(t, m.Bearer())

	// Extra provider fields survive the HTTP hop and the snapshot.
	require.JSONEq(t, `"alice"`, string(m.Session().Extra["username"]))

	restored := f.newManager(t, store)
	require.True(t, restored.Connected())
	require.Equal(t, m.Bearer(), restored.Bearer())

	require.NoError(t, m.Disconnect(ctx))
	require.False(t, m.Connected())
	require.Equal(t, 0, f.api.Len())
	require.Equal(t, 0, store.Len())

	// The old bearer no longer opens anything.
	_, err = f.client.Read(ctx, firstBearer, resp.ID())
	require.True(t, errors.Is(err, sessionapi.ErrSessionNotFound))
}

func TestServer_RefusedLogin(t *testing.T) {
	f := setupTestFixture(t)

	s, err := f.client.Create(context.Background(), sessionapi.Credentials{Username: testUsername, Password: "wrong"})
	require.NoError(t, err)
	require.False(t, s.AccessAllowed)
	require.Nil(t, s.SessionID)
	require.NotEmpty(t, s.Bearer)
}

func TestServer_Errors(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.client.Create(ctx, sessionapi.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)

	t.Run("missing bearer", func(t *testing.T) {
		_, err := f.client.Read(ctx, "", s.ID())
		var apiErr *sessionapi.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.NotEmpty(t, apiErr.RequestID)
		require.True(t, errors.Is(err, sessionapi.ErrUnauthorized))
	})

	t.Run("unknown session", func(t *testing.T) {
		err := f.client.Update(ctx, s.Bearer, "nope", nil)
		require.True(t, errors.Is(err, sessionapi.ErrUnauthorized))
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(f.httpServer.URL+sessionapi.RouteSession, sessionapi.ContentTypeJSON, strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get(sessionapi.HeaderRequestID))
	})
}

func TestServer_CORS(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.httpServer.URL+"/api/session/abc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")

	req, err = http.NewRequest(http.MethodOptions, f.httpServer.URL+"/api/session", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example.com")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Metrics(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.client.Create(ctx, sessionapi.Credentials{Username: testUsername, Password: "wrong"})
	require.NoError(t, err)

	resp, err := http.Get(f.httpServer.URL + server.RouteMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), `session_api_requests_total{code="200",operation="create"} 1`)
	require.Contains(t, string(body), "session_api_logins_refused_total 1")
}

// panickingAPI blows up on every call.
type panickingAPI struct{}

func (panickingAPI) Create(context.Context, sessionapi.Credentials) (*sessions.Session, error) {
	panic("boom")
}

func (panickingAPI) Delete(context.Context, string, string) error { panic("boom") }

func (panickingAPI) Read(context.Context, string, string) (*sessions.Session, error) {
	panic("boom")
}

func (panickingAPI) Update(context.Context, string, string, map[string]any) error { panic("boom") }

func TestServer_Recover(t *testing.T) {
	t.Setenv("ENV", "TEST")
	f := setupWithAPI(t, panickingAPI{})

	_, err := f.client.Create(context.Background(), sessionapi.Credentials{Username: testUsername, Password: testPassword})
	var apiErr *sessionapi.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.True(t, errors.Is(err, errors.ErrInternal))
}

func TestBootstrapDemoUser(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	generated, err := server.BootstrapDemoUser(repo, "demo", "")
	require.NoError(t, err)
	require.NotEmpty(t, generated)

	u, err := repo.GetByUsername("demo")
	require.NoError(t, err)
	require.True(t, u.CheckPassword(generated))

	again, err := server.BootstrapDemoUser(repo, "demo", "")
	require.NoError(t, err)
	require.Empty(t, again)

	given, err := server.BootstrapDemoUser(repo, "other", "Secret123")
	require.NoError(t, err)
	require.Empty(t, given)
	u, err = repo.GetByUsername("other")
	require.NoError(t, err)
	require.True(t, u.CheckPassword("Secret123"))
}

func TestBootstrapDemoUser_WeakPassword(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	_, err := server.BootstrapDemoUser(repo, "demo", "password")
	require.ErrorContains(t, err, "demo password rejected")

	_, err = repo.GetByUsername("demo")
	require.True(t, errors.Is(err, errors.ErrUserNotFound))
}
