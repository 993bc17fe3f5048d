package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clockout.agent/internal/config"
	"clockout.agent/internal/core/model"
	"clockout.agent/pkg/database"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.NewConnection(config.Config{
		DBPath: filepath.Join(t.TempDir(), "clockout.db"),
	})
	require.NoError(t, err)

	store, err := New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func testDraft(workerID int64, ts string) model.AttendanceEventDraft {
	distance := 12.5
	return model.AttendanceEventDraft{
		WorkerID:   workerID,
		WorkerName: "Ada Obi",
		SiteID:     7,
		SiteName:   "Lekki Tower",
		Kind:       model.KindIn,
		Timestamp:  ts,
		Lat:        6.5244,
		Lon:        3.3792,
		AccuracyM:  8,
		DeviceID:   "kiosk-01",
		Valid:      true,
		DistanceM:  &distance,
	}
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := database.NewConnection(config.Config{DBPath: filepath.Join(dir, "clockout.db")})
	require.NoError(t, err)

	store, err := New(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same file must not re-run applied migrations.
	db, err = database.NewConnection(config.Config{DBPath: filepath.Join(dir, "clockout.db")})
	require.NoError(t, err)

	store, err = New(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
