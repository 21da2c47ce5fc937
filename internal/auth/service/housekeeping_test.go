package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	e.invites.Expiry = 20 * time.Millisecond
	_, err := e.invites.Send(ctx, sendInput(actor, "Old", "old@x.com"))
	require.NoError(t, err)

	e.invites.Expiry = 0
	_, err = e.invites.Send(ctx, sendInput(actor, "New", "new@x.com"))
	require.NoError(t, err)
	e.member(t, actor, "Used", "used@x.com")

	time.Sleep(50 * time.Millisecond)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, time.Hour)
	require.Equal(t, int64(1), hk.Cleanup(ctx))
	require.Equal(t, int64(0), hk.Cleanup(ctx))

	pending, err := e.invites.Pending(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	accepted, err := e.invites.Accepted(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	hk := NewHousekeepingService(e.store, nil, nil, 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}
