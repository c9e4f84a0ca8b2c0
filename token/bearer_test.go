package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-server-session/internal/errors"
	"github.com/jrsteele09/go-server-session/token"
	"github.com/stretchr/testify/require"
)

func withNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = orig })
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	withNow(t, now)
	issuer := token.NewIssuer(token.NewHMACSigner("secret"), "test", time.Minute)

	bearer, err := issuer.Issue("user-1", "s1")
	require.NoError(t, err)

	claims, err := issuer.Verify(bearer)
	require.NoError(t, err)
	require.Equal(t, "s1", claims.SessionID)
	require.Equal(t, "user-1", claims.Subject)
	require.NotEmpty(t, claims.ID)

	exp, ok := token.Expiry(bearer)
	require.True(t, ok)
	require.Equal(t, now.Add(time.Minute).Unix(), exp.Unix())
}

func TestIssuer_Verify(t *testing.T) {
	now := time.Now()
	withNow(t, now)
	issuer := token.NewIssuer(token.NewHMACSigner("secret"), "test", time.Minute)
	bearer, err := issuer.Issue("user-1", "s1")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.Verify("")
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := token.NewIssuer(token.NewHMACSigner("other"), "test", time.Minute)
		_, err := other.Verify(bearer)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := token.NewIssuer(token.NewHMACSigner("secret"), "someone-else", time.Minute)
		_, err := other.Verify(bearer)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		withNow(t, now.Add(2*time.Minute))
		_, err := issuer.Verify(bearer)
		require.True(t, errors.Is(err, errors.ErrTokenExpired))
	})
}

func TestExpiry_Opaque(t *testing.T) {
	_, ok := token.Expiry("")
	require.False(t, ok)
	_, ok = token.Expiry("t1")
	require.False(t, ok)
}
