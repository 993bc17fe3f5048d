package database

import (
	"database/sql"
	"fmt"
	"net/url"

	"clockout.agent/internal/config"
	_ "modernc.org/sqlite"
)

// DSN builds the sqlite connection string for the agent database.
// WAL keeps readers unblocked during sync writes, and the busy timeout
// covers the brief lock handoff between the capture and sync paths.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		url.PathEscape(path))
}

// NewConnection creates and verifies a new database handle.
func NewConnection(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// A single connection serializes all writes through one handle
	db.SetMaxOpenConns(1)

	// Ping the database to verify the file is usable
	return db, db.Ping()
}
