// Package authn holds the authentication state of a browser session: who is
// logged in and when they last proved it.
package authn

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
)

// DefaultIdpSessionLifetime bounds how long an authentication stays valid.
const DefaultIdpSessionLifetime = 12 * time.Hour

var (
	// ErrNoActiveIdpSession means the session has no usable authentication.
	// Callers treat it as "not logged in", not as a failure.
	ErrNoActiveIdpSession = errors.New("authn: no active idp session")

	ErrInvalidCredentials = errors.New("authn: invalid credentials")
)

// Identity is an active authentication.
type Identity struct {
	Subject  string
	AuthTime time.Time
}

// SessionAuthenticator reads and writes authentication state kept on the
// session record.
type SessionAuthenticator struct {
	Sessions *store.SessionState
	Lifetime time.Duration
	Now      func() time.Time
}

func (a *SessionAuthenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *SessionAuthenticator) lifetime() time.Duration {
	if a.Lifetime > 0 {
		return a.Lifetime
	}
	return DefaultIdpSessionLifetime
}

// CheckSession returns the active identity or ErrNoActiveIdpSession when
// nobody is logged in or the login is older than the IdP session lifetime.
func (a *SessionAuthenticator) CheckSession(ctx context.Context, sessionID string) (Identity, error) {
	rec, err := a.Sessions.Load(ctx, sessionID)
	if err != nil {
		return Identity{}, err
	}
	if rec.Subject == "" || rec.LastAuthenticationTimestamp == nil {
		return Identity{}, ErrNoActiveIdpSession
	}

	authAt := *rec.LastAuthenticationTimestamp
	if a.now().Sub(authAt) > a.lifetime() {
		return Identity{}, ErrNoActiveIdpSession
	}
	return Identity{Subject: rec.Subject, AuthTime: authAt}, nil
}

func (a *SessionAuthenticator) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	_, err := a.CheckSession(ctx, sessionID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoActiveIdpSession):
		return false, nil
	default:
		return false, err
	}
}

func (a *SessionAuthenticator) ClearAuthentication(ctx context.Context, sessionID string) error {
	return a.Sessions.ClearAuthentication(ctx, sessionID)
}

// LastAuthenticationTimestamp is nil when the session never authenticated.
func (a *SessionAuthenticator) LastAuthenticationTimestamp(ctx context.Context, sessionID string) (*time.Time, error) {
	return a.Sessions.GetLastAuthenticationTimestamp(ctx, sessionID)
}

// RecordAuthentication stamps subject as authenticated now.
func (a *SessionAuthenticator) RecordAuthentication(ctx context.Context, sessionID, subject string) (time.Time, error) {
	at := a.now().UTC()
	if err := a.Sessions.RecordAuthentication(ctx, sessionID, subject, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}
