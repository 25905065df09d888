package authn_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/memory"
	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
)

type fixture struct {
	now   time.Time
	mem   *memory.Store
	state *store.SessionState
	auth  *authn.SessionAuthenticator
}

func newFixture() *fixture {
	f := &fixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), mem: memory.NewStore()}
	clock := func() time.Time { return f.now }
	f.mem.Now = clock
	f.state = &store.SessionState{Sessions: f.mem.Sessions(), Now: clock}
	f.auth = &authn.SessionAuthenticator{Sessions: f.state, Lifetime: time.Hour, Now: clock}
	return f
}

func TestSessionAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session has no idp session", func(t *testing.T) {
		f := newFixture()
		_, err := f.auth.CheckSession(ctx, "sid")
		require.ErrorIs(t, err, authn.ErrNoActiveIdpSession)

		ok, err := f.auth.IsAuthenticated(ctx, "sid")
		require.NoError(t, err)
		require.False(t, ok)

		ts, err := f.auth.LastAuthenticationTimestamp(ctx, "sid")
		require.NoError(t, err)
		require.Nil(t, ts)
	})

	t.Run("recorded authentication is active until the lifetime lapses", func(t *testing.T) {
		f := newFixture()
		at, err := f.auth.RecordAuthentication(ctx, "sid", "sub-1")
		require.NoError(t, err)
		require.True(t, at.Equal(f.now))

		id, err := f.auth.CheckSession(ctx, "sid")
		require.NoError(t, err)
		require.Equal(t, "sub-1", id.Subject)

		f.now = f.now.Add(time.Hour + time.Second)
		ok, err := f.auth.IsAuthenticated(ctx, "sid")
		require.NoError(t, err)
		require.False(t, ok)

		ts, err := f.auth.LastAuthenticationTimestamp(ctx, "sid")
		require.NoError(t, err)
		require.NotNil(t, ts)
	})

	t.Run("clear authentication", func(t *testing.T) {
		f := newFixture()
		_, err := f.auth.RecordAuthentication(ctx, "sid", "sub-1")
		require.NoError(t, err)
		require.NoError(t, f.auth.ClearAuthentication(ctx, "sid"))

		ok, err := f.auth.IsAuthenticated(ctx, "sid")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestLoginService(t *testing.T) {
	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := cryptox.HashPassword("correct horse")
	require.NoError(t, err)

	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.mem.Users().UpsertUser(ctx, domain.User{Username: "alice", Subject: "sub-alice", PasswordHash: hash}))
	require.NoError(t, f.mem.Users().UpsertUser(ctx, domain.User{Username: "broken", Subject: "sub-b", PasswordHash: "nope"}))

	svc := &authn.LoginService{Users: f.mem.Users(), Auth: f.auth}

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "sid", "mallory", "x")
		require.ErrorIs(t, err, authn.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "sid", "alice", "wrong")
		require.ErrorIs(t, err, authn.ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := svc.Login(ctx, "sid", "", "")
		require.ErrorIs(t, err, authn.ErrInvalidCredentials)
	})

	t.Run("malformed stored hash is an error, not a mismatch", func(t *testing.T) {
		_, err := svc.Login(ctx, "sid", "broken", "x")
		require.Error(t, err)
		require.NotErrorIs(t, err, authn.ErrInvalidCredentials)
	})

	t.Run("success records authentication", func(t *testing.T) {
		id, err := svc.Login(ctx, "sid", "alice", "correct horse")
		require.NoError(t, err)
		require.Equal(t, "sub-alice", id.Subject)

		ok, err := f.auth.IsAuthenticated(ctx, "sid")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("logout clears authentication and the interaction", func(t *testing.T) {
		req := domain.AuthorizationRequest{ClientID: "c1"}
		require.NoError(t, f.state.SetPending(ctx, "sid", req, nil, domain.Client{ClientID: "c1"}))

		require.NoError(t, svc.Logout(ctx, "sid"))

		ok, err := f.auth.IsAuthenticated(ctx, "sid")
		require.NoError(t, err)
		require.False(t, ok)

		pending, err := f.state.GetPending(ctx, "sid")
		require.NoError(t, err)
		require.Nil(t, pending)
	})
}
