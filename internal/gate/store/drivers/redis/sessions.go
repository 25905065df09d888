// Package redis keeps browser session records in redis so several gate
// instances can share them. Records are JSON values with a native TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
)

const DefaultKeyPrefix = "gate:session:"

// Open parses a redis:// URL and verifies the server answers.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Sessions implements store.Sessions. The client lifecycle is owned by the
// caller.
type Sessions struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*Sessions)

func WithKeyPrefix(prefix string) Option {
	return func(s *Sessions) { s.prefix = prefix }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sessions) { s.now = now }
}

func NewSessions(client goredis.UniversalClient, opts ...Option) *Sessions {
	s := &Sessions{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Sessions) key(id string) string { return s.prefix + id }

func (s *Sessions) Get(ctx context.Context, id string) (domain.SessionState, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.SessionState{}, store.ErrNotFound
	}
	if err != nil {
		return domain.SessionState{}, err
	}

	var rec domain.SessionState
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.SessionState{}, fmt.Errorf("redis: decode session: %w", err)
	}
	if !rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(s.now()) {
		return domain.SessionState{}, store.ErrNotFound
	}
	return rec, nil
}

// Put writes rec with a TTL matching its ExpiresAt. Already expired records
// are deleted instead.
func (s *Sessions) Put(ctx context.Context, rec domain.SessionState) error {
	var ttl time.Duration
	if !rec.ExpiresAt.IsZero() {
		ttl = rec.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, rec.ID)
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(rec.ID), raw, ttl).Err()
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// DeleteExpired is a no-op; redis evicts keys when their TTL lapses.
func (s *Sessions) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *Sessions) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
