package sqlitestore

import (
	"context"
	"database/sql"
)

// GetState reads one agent_state value, "" when the key is absent.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM agent_state WHERE key = ?`

	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", mapErr(err)
	}
	return value, nil
}

// SetState upserts one agent_state value.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	query := `INSERT INTO agent_state (key, value) VALUES (?, ?)
              ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	_, err := s.db.ExecContext(ctx, query, key, value)
	return mapErr(err)
}
