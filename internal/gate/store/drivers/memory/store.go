// Package memory is a process-local Store used for development and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionState
	clients  map[string]domain.Client
	users    map[string]domain.User

	// Now is overridable in tests.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.SessionState),
		clients:  make(map[string]domain.Client),
		users:    make(map[string]domain.User),
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) Sessions() store.Sessions { return sessionsRepo{s} }
func (s *Store) Clients() store.Clients   { return clientsRepo{s} }
func (s *Store) Users() store.Users       { return usersRepo{s} }

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type sessionsRepo struct{ s *Store }

func (r sessionsRepo) Get(ctx context.Context, id string) (domain.SessionState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.sessions[id]
	if !ok || (!rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(r.s.now())) {
		return domain.SessionState{}, store.ErrNotFound
	}
	return cloneSession(rec), nil
}

func (r sessionsRepo) Put(ctx context.Context, rec domain.SessionState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.sessions[rec.ID] = cloneSession(rec)
	return nil
}

func (r sessionsRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, id)
	return nil
}

func (r sessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, rec := range r.s.sessions {
		if !rec.ExpiresAt.IsZero() && rec.ExpiresAt.Before(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r sessionsRepo) Ping(ctx context.Context) error { return ctx.Err() }

type clientsRepo struct{ s *Store }

func (r clientsRepo) GetClientByID(ctx context.Context, clientID string) (domain.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clients[clientID]
	if !ok {
		return domain.Client{}, store.ErrNotFound
	}
	return cloneClient(c), nil
}

func (r clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Client, 0, len(r.s.clients))
	for _, c := range r.s.clients {
		out = append(out, cloneClient(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

func (r clientsRepo) UpsertClient(ctx context.Context, c domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if prev, ok := r.s.clients[c.ClientID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.s.clients[c.ClientID] = cloneClient(c)
	return nil
}

func (r clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[clientID]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.clients, clientID)
	return nil
}

type usersRepo struct{ s *Store }

func (r usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) UpsertUser(ctx context.Context, u domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.users[u.Username] = u
	return nil
}

func cloneClient(c domain.Client) domain.Client {
	c.RedirectURIs = slices.Clone(c.RedirectURIs)
	if c.DefaultMaxAge != nil {
		v := *c.DefaultMaxAge
		c.DefaultMaxAge = &v
	}
	return c
}

func cloneRequest(r domain.AuthorizationRequest) domain.AuthorizationRequest {
	r.Scopes = slices.Clone(r.Scopes)
	r.Prompt = slices.Clone(r.Prompt)
	r.ACRValues = slices.Clone(r.ACRValues)
	r.Extensions = maps.Clone(r.Extensions)
	if r.MaxAge != nil {
		v := *r.MaxAge
		r.MaxAge = &v
	}
	return r
}

func cloneSession(s domain.SessionState) domain.SessionState {
	if s.PendingRequest != nil {
		req := cloneRequest(*s.PendingRequest)
		s.PendingRequest = &req
	}
	if s.ResolvedClient != nil {
		c := cloneClient(*s.ResolvedClient)
		s.ResolvedClient = &c
	}
	if s.LastAuthenticationTimestamp != nil {
		ts := *s.LastAuthenticationTimestamp
		s.LastAuthenticationTimestamp = &ts
	}
	s.RawParameters = maps.Clone(s.RawParameters)
	return s
}
