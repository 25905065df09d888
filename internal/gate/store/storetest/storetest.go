// Package storetest holds behaviour checks shared by every store driver.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// Session returns a populated record expiring ttl after now.
func Session(id string, now time.Time, ttl time.Duration) domain.SessionState {
	authAt := now.Add(-time.Minute).UTC().Truncate(time.Millisecond)
	return domain.SessionState{
		ID: id,
		PendingRequest: &domain.AuthorizationRequest{
			ClientID:    "c1",
			RedirectURI: "https://rp.example/cb",
			State:       "xyz",
			Scopes:      []string{"openid", "profile"},
			Prompt:      []string{domain.PromptLogin},
			MaxAge:      intPtr(300),
			Extensions:  map[string]string{"ui_locales": "en"},
		},
		RawParameters:               map[string]string{"client_id": "c1", "prompt": "login"},
		ResolvedClient:              &domain.Client{ClientID: "c1", RedirectURIs: []string{"https://rp.example/cb"}, SubjectType: domain.SubjectTypePublic},
		LoginHint:                   "alice",
		PromptLoginHandled:          true,
		Subject:                     "sub-alice",
		LastAuthenticationTimestamp: &authAt,
		CreatedAt:                   now.UTC().Truncate(time.Millisecond),
		UpdatedAt:                   now.UTC().Truncate(time.Millisecond),
		ExpiresAt:                   now.Add(ttl).UTC().Truncate(time.Millisecond),
	}
}

// RunSessions exercises a Sessions implementation. now must be the clock the
// repository uses to decide expiry.
func RunSessions(t *testing.T, repo store.Sessions, now time.Time) {
	ctx := context.Background()

	t.Run("missing session is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "does-not-exist")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put then get round trips every field", func(t *testing.T) {
		rec := Session("sess-roundtrip", now, time.Hour)
		require.NoError(t, repo.Put(ctx, rec))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec.PendingRequest, got.PendingRequest)
		require.Equal(t, rec.RawParameters, got.RawParameters)
		require.Equal(t, rec.ResolvedClient.ClientID, got.ResolvedClient.ClientID)
		require.Equal(t, rec.ResolvedClient.RedirectURIs, got.ResolvedClient.RedirectURIs)
		require.Equal(t, rec.LoginHint, got.LoginHint)
		require.True(t, got.PromptLoginHandled)
		require.Equal(t, rec.Subject, got.Subject)
		require.NotNil(t, got.LastAuthenticationTimestamp)
		require.True(t, rec.LastAuthenticationTimestamp.Equal(*got.LastAuthenticationTimestamp))
	})

	t.Run("put replaces", func(t *testing.T) {
		rec := Session("sess-replace", now, time.Hour)
		require.NoError(t, repo.Put(ctx, rec))

		rec.ClearInteraction()
		rec.LoginHint = ""
		require.NoError(t, repo.Put(ctx, rec))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.Nil(t, got.PendingRequest)
		require.Empty(t, got.LoginHint)
	})

	t.Run("expired sessions are invisible and purged", func(t *testing.T) {
		expired := Session("sess-expired", now.Add(-2*time.Hour), time.Hour)
		require.NoError(t, repo.Put(ctx, expired))

		_, err := repo.Get(ctx, expired.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = repo.DeleteExpired(ctx, now)
		require.NoError(t, err)

		live, err := repo.Get(ctx, "sess-roundtrip")
		require.NoError(t, err)
		require.Equal(t, "sess-roundtrip", live.ID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := Session("sess-delete", now, time.Hour)
		require.NoError(t, repo.Put(ctx, rec))
		require.NoError(t, repo.Delete(ctx, rec.ID))

		_, err := repo.Get(ctx, rec.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, repo.Ping(ctx))
	})
}

// RunClients exercises a Clients implementation.
func RunClients(t *testing.T, repo store.Clients) {
	ctx := context.Background()

	_, err := repo.GetClientByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	c1 := domain.Client{
		ClientID:      "c1",
		Name:          "Relying Party",
		DefaultMaxAge: intPtr(600),
		RedirectURIs:  []string{"https://rp.example/cb", "https://rp.example/alt"},
		SubjectType:   domain.SubjectTypePairwise,
	}
	require.NoError(t, repo.UpsertClient(ctx, c1))
	require.NoError(t, repo.UpsertClient(ctx, domain.Client{ClientID: "c2", RedirectURIs: []string{"http://localhost/cb"}}))

	got, err := repo.GetClientByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, c1.Name, got.Name)
	require.Equal(t, 600, *got.DefaultMaxAge)
	require.Equal(t, c1.RedirectURIs, got.RedirectURIs)
	require.Equal(t, domain.SubjectTypePairwise, got.SubjectType)

	c1.DefaultMaxAge = nil
	require.NoError(t, repo.UpsertClient(ctx, c1))
	got, err = repo.GetClientByID(ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, got.DefaultMaxAge)

	all, err := repo.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "c1", all[0].ClientID)

	require.NoError(t, repo.DeleteClient(ctx, "c2"))
	require.ErrorIs(t, repo.DeleteClient(ctx, "c2"), store.ErrNotFound)
}

// RunUsers exercises a Users implementation.
func RunUsers(t *testing.T, repo store.Users) {
	ctx := context.Background()

	_, err := repo.GetUserByUsername(ctx, "alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.UpsertUser(ctx, domain.User{Username: "alice", Subject: "sub-alice", PasswordHash: "h1"}))
	require.NoError(t, repo.UpsertUser(ctx, domain.User{Username: "alice", Subject: "sub-alice", PasswordHash: "h2"}))

	u, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "sub-alice", u.Subject)
	require.Equal(t, "h2", u.PasswordHash)
}
