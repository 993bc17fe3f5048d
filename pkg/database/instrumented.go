package database

import (
	"database/sql"

	"clockout.agent/internal/config"
	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	_ "modernc.org/sqlite" // Register sqlite driver
)

// NewInstrumentedConnection creates a database handle with OpenTelemetry instrumentation.
func NewInstrumentedConnection(cfg config.Config) (*sql.DB, error) {
	// otelsql.Open wraps the driver to intercept queries and create spans
	db, err := otelsql.Open("sqlite", DSN(cfg.DBPath),
		otelsql.WithAttributes(semconv.DBSystemSqlite),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
