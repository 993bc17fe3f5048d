package agent

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockout.agent/internal/adapters/sqlitestore"
	"clockout.agent/internal/catalog"
	"clockout.agent/internal/config"
	"clockout.agent/internal/core/model"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
	"clockout.agent/pkg/database"
)

// loopClient fakes the backend for whole-agent runs.
type loopClient struct {
	mu sync.Mutex

	sites   []model.Site
	workers []model.Worker

	rejectBulk bool
	logins     int
	bulkCalls  int
	nextID     int64
}

func (c *loopClient) Login(ctx context.Context) (remote.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logins++
	return remote.Session{Token: "tok"}, nil
}

func (c *loopClient) Session() remote.Session { return remote.Session{Token: "tok"} }

func (c *loopClient) FetchSites(ctx context.Context) ([]model.Site, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sites, nil
}

func (c *loopClient) FetchWorkers(ctx context.Context) ([]model.Worker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers, nil
}

func (c *loopClient) SubmitEvent(ctx context.Context, event remote.EventUpload) (remote.EventAck, error) {
	return remote.EventAck{}, nil
}

func (c *loopClient) SubmitEventsBulk(ctx context.Context, events []remote.EventUpload) ([]remote.EventAck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bulkCalls++
	if c.rejectBulk {
		return nil, &remote.APIError{StatusCode: http.StatusUnauthorized, Body: "Not authenticated"}
	}

	acks := make([]remote.EventAck, 0, len(events))
	for range events {
		c.nextID++
		acks = append(acks, remote.EventAck{ID: c.nextID})
	}
	return acks, nil
}

func (c *loopClient) stats() (logins, bulkCalls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logins, c.bulkCalls
}

func setupAgent(t *testing.T, client *loopClient) (*Agent, *sqlitestore.Store) {
	t.Helper()

	db, err := database.NewConnection(config.Config{
		DBPath: filepath.Join(t.TempDir(), "clockout.db"),
	})
	require.NoError(t, err)

	store, err := sqlitestore.New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := syncer.NewEngine(store, client, 100)
	cat := catalog.NewService(client, store, 7)

	a := New(engine, cat, store, client, Config{
		SyncInterval:    20 * time.Millisecond,
		CatalogInterval: 20 * time.Millisecond,
		PurgeInterval:   20 * time.Millisecond,
		PurgeRetention:  7 * 24 * time.Hour,
	})
	return a, store
}

func runAgent(t *testing.T, a *Agent, d time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d + 2*time.Second):
		t.Fatal("agent did not stop after context cancellation")
	}
}

func TestAgent_DrainsQueueAndRefreshesCatalog(t *testing.T) {
	ctx := context.Background()

	client := &loopClient{
		sites:   []model.Site{{ID: 7, Name: "Lekki Tower", Lat: 6.5244, Lon: 3.3792, RadiusM: 100}},
		workers: []model.Worker{{ID: 1, Name: "Ada Obi", SiteID: 7, IsActive: true}},
	}
	a, store := setupAgent(t, client)

	for _, ts := range []string{"2026-03-02T08:00:00", "2026-03-02T08:01:00", "2026-03-02T08:02:00"} {
		_, err := store.AppendEvent(ctx, model.AttendanceEventDraft{
			WorkerID: 1, SiteID: 7, Kind: model.KindIn, Timestamp: ts,
			Lat: 6.5244, Lon: 3.3792, DeviceID: "kiosk-01", Valid: true,
		})
		require.NoError(t, err)
	}

	runAgent(t, a, 300*time.Millisecond)

	count, err := store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "the sync loop must drain the queue")

	sites, err := store.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 1, "the catalog loop must populate the cache")
}

func TestAgent_PurgesOldSyncedEvents(t *testing.T) {
	ctx := context.Background()

	client := &loopClient{}
	a, store := setupAgent(t, client)

	oldID, err := store.AppendEvent(ctx, model.AttendanceEventDraft{
		WorkerID: 1, SiteID: 7, Kind: model.KindOut, Timestamp: "2020-01-01T09:00:00",
		Lat: 6.5244, Lon: 3.3792, DeviceID: "kiosk-01", Valid: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(ctx, oldID, 900))

	runAgent(t, a, 120*time.Millisecond)

	ev, err := store.GetEvent(ctx, oldID)
	require.NoError(t, err)
	assert.Nil(t, ev, "ancient synced events must be swept")
}

func TestAgent_ReauthenticatesOn401(t *testing.T) {
	ctx := context.Background()

	client := &loopClient{rejectBulk: true}
	a, store := setupAgent(t, client)

	_, err := store.AppendEvent(ctx, model.AttendanceEventDraft{
		WorkerID: 1, SiteID: 7, Kind: model.KindIn, Timestamp: "2026-03-02T08:00:00",
		Lat: 6.5244, Lon: 3.3792, DeviceID: "kiosk-01", Valid: true,
	})
	require.NoError(t, err)

	runAgent(t, a, 150*time.Millisecond)

	logins, bulkCalls := client.stats()
	assert.Positive(t, bulkCalls, "sync must have been attempted")
	assert.Positive(t, logins, "a 401 must trigger a re-login")

	count, err := store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rejected events stay queued, never dropped")
}
