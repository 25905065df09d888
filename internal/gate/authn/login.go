package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

// LoginService is the built-in username/password authentication step.
type LoginService struct {
	Users store.Users
	Auth  *SessionAuthenticator
}

// Login verifies the credentials and records the authentication on the
// session. Unknown users and wrong passwords both return
// ErrInvalidCredentials.
func (s *LoginService) Login(ctx context.Context, sessionID, username, password string) (Identity, error) {
	log := slogx.FromContext(ctx)

	if username == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login for unknown user")
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login with wrong password", "subject", user.Subject)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("verify password: %w", err)
	}

	return s.establish(ctx, sessionID, user)
}

func (s *LoginService) establish(ctx context.Context, sessionID string, user domain.User) (Identity, error) {
	at, err := s.Auth.RecordAuthentication(ctx, sessionID, user.Subject)
	if err != nil {
		return Identity{}, err
	}
	slogx.FromContext(ctx).Info("user authenticated", "subject", user.Subject)
	return Identity{Subject: user.Subject, AuthTime: at}, nil
}

// Logout forgets the authentication and any pending interaction.
func (s *LoginService) Logout(ctx context.Context, sessionID string) error {
	if err := s.Auth.ClearAuthentication(ctx, sessionID); err != nil {
		return err
	}
	return s.Auth.Sessions.CompleteInteraction(ctx, sessionID)
}
