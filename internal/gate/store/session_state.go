package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

// DefaultSessionTTL applies when SessionState.TTL is unset.
const DefaultSessionTTL = 8 * time.Hour

// SessionState gives field level access to per-browser session records on
// top of a Sessions repository. Records are created on first write; reads of
// an unknown session see the zero record.
//
// Each call is one load and at most one save. Requests for the same session
// are assumed to be serialised by the browser; there is no locking across
// calls.
type SessionState struct {
	Sessions Sessions
	TTL      time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *SessionState) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the record for id, or a fresh one if none exists.
func (s *SessionState) Load(ctx context.Context, id string) (domain.SessionState, error) {
	rec, err := s.Sessions.Get(ctx, id)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrNotFound):
		now := s.now()
		return domain.SessionState{ID: id, CreatedAt: now}, nil
	default:
		return domain.SessionState{}, unavailable(err)
	}
}

// Update loads the record, applies fn and saves it with a refreshed expiry.
func (s *SessionState) Update(ctx context.Context, id string, fn func(*domain.SessionState)) error {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	fn(&rec)

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := s.now()
	rec.UpdatedAt = now
	rec.ExpiresAt = now.Add(ttl)
	if err := s.Sessions.Put(ctx, rec); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetPending returns the in-flight authorization request, if any.
func (s *SessionState) GetPending(ctx context.Context, id string) (*domain.AuthorizationRequest, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.PendingRequest, nil
}

// SetPending stores a new interaction, replacing any previous one.
func (s *SessionState) SetPending(ctx context.Context, id string, req domain.AuthorizationRequest, raw map[string]string, client domain.Client) error {
	if req.ClientID != client.ClientID {
		return fmt.Errorf("store: pending request for %q resolved to client %q", req.ClientID, client.ClientID)
	}
	return s.Update(ctx, id, func(rec *domain.SessionState) {
		rec.PendingRequest = &req
		rec.RawParameters = maps.Clone(raw)
		rec.ResolvedClient = &client
	})
}

// ClearPending drops the interaction without touching the prompt marker.
func (s *SessionState) ClearPending(ctx context.Context, id string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) { rec.ClearInteraction() })
}

// CompleteInteraction ends the interaction: the pending request, raw
// parameters, client and prompt=login marker are all cleared.
func (s *SessionState) CompleteInteraction(ctx context.Context, id string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) {
		rec.ClearInteraction()
		rec.PromptLoginHandled = false
	})
}

func (s *SessionState) GetRawParameters(ctx context.Context, id string) (map[string]string, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.RawParameters, nil
}

func (s *SessionState) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.ResolvedClient, nil
}

func (s *SessionState) SetClient(ctx context.Context, id string, client domain.Client) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) { rec.ResolvedClient = &client })
}

func (s *SessionState) GetLoginHint(ctx context.Context, id string) (string, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.LoginHint, nil
}

func (s *SessionState) SetLoginHint(ctx context.Context, id, hint string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) { rec.LoginHint = hint })
}

func (s *SessionState) ClearLoginHint(ctx context.Context, id string) error {
	return s.SetLoginHint(ctx, id, "")
}

func (s *SessionState) IsPromptLoginHandled(ctx context.Context, id string) (bool, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return rec.PromptLoginHandled, nil
}

func (s *SessionState) SetPromptLoginHandled(ctx context.Context, id string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) { rec.PromptLoginHandled = true })
}

func (s *SessionState) ClearPromptLoginHandled(ctx context.Context, id string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) { rec.PromptLoginHandled = false })
}

// GetLastAuthenticationTimestamp is read-only here; only the authentication
// subsystem writes it through RecordAuthentication.
func (s *SessionState) GetLastAuthenticationTimestamp(ctx context.Context, id string) (*time.Time, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.LastAuthenticationTimestamp, nil
}

// GetSubject returns the authenticated subject, or "" when none is recorded.
func (s *SessionState) GetSubject(ctx context.Context, id string) (string, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Subject, nil
}

// RecordAuthentication marks subject as authenticated at the given time.
func (s *SessionState) RecordAuthentication(ctx context.Context, id, subject string, at time.Time) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) {
		rec.Subject = subject
		rec.LastAuthenticationTimestamp = &at
	})
}

// ClearAuthentication forgets the authenticated subject.
func (s *SessionState) ClearAuthentication(ctx context.Context, id string) error {
	return s.Update(ctx, id, func(rec *domain.SessionState) {
		rec.Subject = ""
		rec.LastAuthenticationTimestamp = nil
	})
}

// Destroy removes the whole record.
func (s *SessionState) Destroy(ctx context.Context, id string) error {
	if err := s.Sessions.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
