package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/pending"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the sqlite implementation of the repository contracts. All
// access goes through one *sql.DB handle capped at a single connection,
// which serializes writes from the capture and sync paths.
type Store struct {
	db   *sql.DB
	feed *pending.Feed
}

// New runs pending migrations and primes the unsynced-count feed from
// whatever the previous run left in the queue.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	s := &Store{db: db, feed: pending.NewFeed()}

	count, err := s.CountUnsynced(ctx)
	if err != nil {
		return nil, err
	}
	s.feed.Publish(count)

	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}

// PendingUpdates exposes the unsynced-count feed for live subscribers.
func (s *Store) PendingUpdates() *pending.Feed {
	return s.feed
}

func (s *Store) Ping(ctx context.Context) error {
	return mapErr(s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr translates sqlite failure modes into the store error taxonomy
// so callers can branch on errors.Is. The driver reports these only by
// message, so matching on substrings is the stable option.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database or disk is full"):
		return fmt.Errorf("%w: %v", model.ErrStorageFull, err)
	case strings.Contains(msg, "disk I/O error"),
		strings.Contains(msg, "unable to open database"),
		strings.Contains(msg, "database disk image is malformed"):
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return err
}
