package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUnavailable marks a backing store fault. It is fatal for the current
	// interaction and is never retried.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface implemented by the drivers. The
// session repository may be swapped for a distributed backend (redis) while
// clients and users stay in the primary store.
type Store interface {
	Sessions() Sessions
	Clients() Clients
	Users() Users

	ApplyMigrations() error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Sessions persists whole SessionState records.
type Sessions interface {
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (domain.SessionState, error)

	// Put creates or replaces the record.
	Put(ctx context.Context, s domain.SessionState) error

	Delete(ctx context.Context, id string) error

	// DeleteExpired purges records whose ExpiresAt is before now and returns
	// the number removed. Backends with native expiry return 0.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
}

// Clients is the client registry.
type Clients interface {
	// GetClientByID returns ErrNotFound for unregistered clients.
	GetClientByID(ctx context.Context, clientID string) (domain.Client, error)

	ListClients(ctx context.Context) ([]domain.Client, error)

	// UpsertClient inserts or replaces the registration.
	UpsertClient(ctx context.Context, c domain.Client) error

	DeleteClient(ctx context.Context, clientID string) error
}

// Users holds accounts for the built-in password login.
type Users interface {
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	UpsertUser(ctx context.Context, u domain.User) error
}
