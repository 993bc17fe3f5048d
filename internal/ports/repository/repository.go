package repository

import (
	"context"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/pending"
)

// EventStore contract. The attendance log is append-only: rows are never
// updated after insert except for the one-way synced transition.
type EventStore interface {
	AppendEvent(ctx context.Context, draft model.AttendanceEventDraft) (int64, error)
	GetEvent(ctx context.Context, id int64) (*model.AttendanceEvent, error)
	ListUnsynced(ctx context.Context) ([]model.AttendanceEvent, error)
	ListRecent(ctx context.Context, limit int) ([]model.AttendanceEvent, error)
	MarkSynced(ctx context.Context, id int64, serverID int64) error
	CountUnsynced(ctx context.Context) (int, error)
	PurgeSynced(ctx context.Context, before string) (int64, error)
	PendingUpdates() *pending.Feed
}

// CatalogStore contract for the cached site and worker rosters.
// Replace operations swap the whole table inside one transaction.
type CatalogStore interface {
	ReplaceSites(ctx context.Context, sites []model.Site) error
	ReplaceWorkers(ctx context.Context, workers []model.Worker) error
	GetSite(ctx context.Context, id int64) (*model.Site, error)
	GetWorker(ctx context.Context, id int64) (*model.Worker, error)
	ListSites(ctx context.Context) ([]model.Site, error)
	ListWorkers(ctx context.Context) ([]model.Worker, error)
}

// StateStore contract for small install-scoped key/value state
// (device id, catalog refresh marks). Missing keys read as "".
type StateStore interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// Store bundles the three contracts the way the sqlite adapter
// implements them, over a single serialized connection.
type Store interface {
	EventStore
	CatalogStore
	StateStore
	Ping(ctx context.Context) error
	Close() error
}
