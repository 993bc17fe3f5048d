package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockout.agent/internal/core/model"
)

func TestStore_AppendEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns increasing local ids and queues the event", func(t *testing.T) {
		store := setupTestStore(t)

		first, err := store.AppendEvent(ctx, testDraft(1, "2026-03-02T08:00:00"))
		require.NoError(t, err)
		second, err := store.AppendEvent(ctx, testDraft(2, "2026-03-02T08:01:00"))
		require.NoError(t, err)

		assert.Greater(t, second, first)

		unsynced, err := store.ListUnsynced(ctx)
		require.NoError(t, err)
		require.Len(t, unsynced, 2)
		assert.Equal(t, first, unsynced[0].ID)
		assert.Equal(t, second, unsynced[1].ID)
	})

	t.Run("round-trips every field", func(t *testing.T) {
		store := setupTestStore(t)

		draft := testDraft(3, "2026-03-02T08:02:00")
		draft.Kind = model.KindOut
		draft.Valid = false

		id, err := store.AppendEvent(ctx, draft)
		require.NoError(t, err)

		ev, err := store.GetEvent(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, ev)

		assert.Equal(t, draft.WorkerID, ev.WorkerID)
		assert.Equal(t, draft.WorkerName, ev.WorkerName)
		assert.Equal(t, draft.SiteID, ev.SiteID)
		assert.Equal(t, draft.SiteName, ev.SiteName)
		assert.Equal(t, model.KindOut, ev.Kind)
		assert.Equal(t, draft.Timestamp, ev.Timestamp)
		assert.Equal(t, draft.Lat, ev.Lat)
		assert.Equal(t, draft.Lon, ev.Lon)
		assert.Equal(t, draft.AccuracyM, ev.AccuracyM)
		assert.Equal(t, draft.DeviceID, ev.DeviceID)
		assert.False(t, ev.Valid)
		require.NotNil(t, ev.DistanceM)
		assert.Equal(t, *draft.DistanceM, *ev.DistanceM)
		assert.False(t, ev.Synced)
		assert.Zero(t, ev.ServerID)
	})

	t.Run("stores a nil distance as null", func(t *testing.T) {
		store := setupTestStore(t)

		draft := testDraft(4, "2026-03-02T08:03:00")
		draft.DistanceM = nil

		id, err := store.AppendEvent(ctx, draft)
		require.NoError(t, err)

		ev, err := store.GetEvent(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Nil(t, ev.DistanceM)
	})
}

func TestStore_GetEvent_MissingIsNil(t *testing.T) {
	store := setupTestStore(t)

	ev, err := store.GetEvent(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestStore_MarkSynced(t *testing.T) {
	ctx := context.Background()

	t.Run("flips the flag and records the server id", func(t *testing.T) {
		store := setupTestStore(t)

		id, err := store.AppendEvent(ctx, testDraft(1, "2026-03-02T08:00:00"))
		require.NoError(t, err)

		require.NoError(t, store.MarkSynced(ctx, id, 5001))

		ev, err := store.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.True(t, ev.Synced)
		assert.Equal(t, int64(5001), ev.ServerID)

		count, err := store.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("is idempotent and keeps the first server id", func(t *testing.T) {
		store := setupTestStore(t)

		id, err := store.AppendEvent(ctx, testDraft(1, "2026-03-02T08:00:00"))
		require.NoError(t, err)

		require.NoError(t, store.MarkSynced(ctx, id, 5001))
		require.NoError(t, store.MarkSynced(ctx, id, 9999))

		ev, err := store.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5001), ev.ServerID)
	})

	t.Run("tolerates an unknown id", func(t *testing.T) {
		store := setupTestStore(t)
		assert.NoError(t, store.MarkSynced(ctx, 12345, 1))
	})
}

func TestStore_CountUnsynced_TracksQueueDepth(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	ids := make([]int64, 0, 3)
	for i, ts := range []string{"2026-03-02T08:00:00", "2026-03-02T08:01:00", "2026-03-02T08:02:00"} {
		id, err := store.AppendEvent(ctx, testDraft(int64(i+1), ts))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	count, err := store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for i, id := range ids {
		require.NoError(t, store.MarkSynced(ctx, id, int64(100+i)))
	}

	count, err = store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_PendingUpdates_PublishesOnWrite(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	sub := store.PendingUpdates().Subscribe()
	defer store.PendingUpdates().Unsubscribe(sub)

	assert.Equal(t, 0, <-sub)

	id, err := store.AppendEvent(ctx, testDraft(1, "2026-03-02T08:00:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, <-sub)

	require.NoError(t, store.MarkSynced(ctx, id, 42))
	assert.Equal(t, 0, <-sub)
}

func TestStore_PurgeSynced(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	oldSynced, err := store.AppendEvent(ctx, testDraft(1, "2026-02-01T09:00:00"))
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, oldSynced, 1))

	oldUnsynced, err := store.AppendEvent(ctx, testDraft(2, "2026-02-01T10:00:00"))
	require.NoError(t, err)

	freshSynced, err := store.AppendEvent(ctx, testDraft(3, "2026-03-02T08:00:00"))
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, freshSynced, 2))

	deleted, err := store.PurgeSynced(ctx, "2026-03-01T00:00:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The old synced row is gone, the old unsynced row survives.
	ev, err := store.GetEvent(ctx, oldSynced)
	require.NoError(t, err)
	assert.Nil(t, ev)

	ev, err = store.GetEvent(ctx, oldUnsynced)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.False(t, ev.Synced)

	ev, err = store.GetEvent(ctx, freshSynced)
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestStore_ListRecent_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for i, ts := range []string{"2026-03-02T08:00:00", "2026-03-02T08:01:00", "2026-03-02T08:02:00"} {
		_, err := store.AppendEvent(ctx, testDraft(int64(i+1), ts))
		require.NoError(t, err)
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2026-03-02T08:02:00", recent[0].Timestamp)
	assert.Equal(t, "2026-03-02T08:01:00", recent[1].Timestamp)
}
