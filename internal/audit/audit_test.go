package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoteldormis1/posada-dormis-backoffice/internal/calendar"
	"github.com/hoteldormis1/posada-dormis-backoffice/internal/timeline"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRecordsActions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := calendar.NewDay(2024, 6, 10)
	end := calendar.NewDay(2024, 6, 13)

	store.ReservationCreated(ctx, 5, 42, start, end, "Ana")
	store.Transition(ctx, 42, timeline.OpConfirm)
	store.ConflictRejected(ctx, 5, start, end)

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, ActionConflictRejected, entries[0].Action)
	assert.Equal(t, ActionTransition, entries[1].Action)
	assert.Equal(t, ActionReservationCreated, entries[2].Action)

	created := entries[2]
	assert.Equal(t, int64(5), created.RoomID)
	assert.Equal(t, int64(42), created.BookingID)
	assert.Equal(t, "2024-06-10", created.Start)
	assert.Equal(t, "2024-06-13", created.End)
	assert.Equal(t, "Ana", created.Detail)
}

func TestStoreCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Transition(ctx, 1, timeline.OpConfirm)
	store.Transition(ctx, 2, timeline.OpCancel)

	// Nothing old enough yet.
	removed, err := store.Cleanup(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Everything is older than a negative-age cutoff in the future.
	removed, err = store.Cleanup(ctx, -time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
