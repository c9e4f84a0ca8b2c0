package serversession_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-server-session/serversession"
	"github.com/jrsteele09/go-server-session/sessionapi/memapi"
	"github.com/jrsteele09/go-server-session/storage/filestore"
	"github.com/jrsteele09/go-server-session/token"
	"github.com/jrsteele09/go-server-session/users"
	fakeuserrepo "github.com/jrsteele09/go-server-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestManager_WithMemAPI(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	cfg := serversession.Config{Application: "shop", Logger: &logger}

	repo := fakeuserrepo.NewFakeUserRepo()
	u, err := users.NewUser("alice", "pw")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(u))
	api := memapi.New(repo, token.NewIssuer(token.NewHMACSigner("secret"), "test", time.Minute), time.Hour)

	fs := afero.NewMemMapFs()
	store, err := filestore.New(fs, "/sessions")
	require.NoError(t, err)

	m := serversession.New(ctx, cfg, api, store)
	require.False(t, m.Connected())

	resp, err := m.Connect(ctx, "alice", "pw", map[string]any{"cart": "empty"})
	require.NoError(t, err)
	require.True(t, resp.AccessAllowed)
	require.True(t, m.Connected())
	exp, ok := m.BearerExpiry()
	require.True(t, ok)
	require.True(t, exp.After(time.Now()))

	exists, err := afero.Exists(fs, "/sessions/session-shop")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, m.SetSessionData(ctx, map[string]any{"cart": "full"}))

	// A second manager for the same application resumes the session.
	resumed := serversession.New(ctx, cfg, api, store)
	require.True(t, resumed.Connected())
	data, err := resumed.GetSessionData(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"cart": "full"}, data)

	require.NoError(t, resumed.Disconnect(ctx))
	require.Equal(t, 0, api.Len())
	exists, err = afero.Exists(fs, "/sessions/session-shop")
	require.NoError(t, err)
	require.False(t, exists)

	// The first manager still believes it is connected until it talks to the API.
	require.True(t, m.Connected())
	data, err = m.GetSessionData(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
	require.False(t, m.Connected())
}

func TestManager_RefusedLogin(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	repo := fakeuserrepo.NewFakeUserRepo()
	u, err := users.NewUser("alice", "pw")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(u))
	api := memapi.New(repo, token.NewIssuer(token.NewHMACSigner("secret"), "test", time.Minute), time.Hour)
	store, err := filestore.New(afero.NewMemMapFs(), "/sessions")
	require.NoError(t, err)

	m := serversession.New(ctx, serversession.Config{Logger: &logger}, api, store)
	resp, err := m.Connect(ctx, "alice", "wrong", nil)
	require.NoError(t, err)
	require.False(t, resp.AccessAllowed)
	require.False(t, m.Connected())
	require.NotEmpty(t, m.Bearer())

	_, ok, err := store.Get(ctx, m.StorageKey())
	require.NoError(t, err)
	require.False(t, ok)
}
