package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/memory"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/storetest"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mem := memory.NewStore()
	mem.Now = func() time.Time { return now }

	require.NoError(t, mem.Sessions().Put(ctx, storetest.Session("live", now, time.Hour)))
	require.NoError(t, mem.Sessions().Put(ctx, storetest.Session("stale", now.Add(-3*time.Hour), time.Hour)))

	hk := NewHousekeepingService(mem.Sessions(), slogx.Discard(), 0)
	hk.Now = func() time.Time { return now }
	require.Equal(t, time.Hour, hk.Interval)

	require.EqualValues(t, 1, hk.Cleanup(ctx))

	_, err := mem.Sessions().Get(ctx, "live")
	require.NoError(t, err)
	_, err = mem.Sessions().Get(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()

	hk := NewHousekeepingService(brokenSessions{}, slogx.Discard(), time.Millisecond)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()

	require.Zero(t, hk.Cleanup(context.Background()))
}
