package sqlitestore

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clockout.agent/internal/core/model"
)

const eventColumns = `id, server_id, worker_id, worker_name, site_id, site_name, kind,
              event_timestamp, gps_lat, gps_lon, accuracy_m, device_id, valid, distance_m, synced`

// AppendEvent inserts one captured event and returns its local id.
func (s *Store) AppendEvent(ctx context.Context, draft model.AttendanceEventDraft) (int64, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("app.workerId", draft.WorkerID))

	var id int64
	query := `INSERT INTO attendance_events (worker_id, worker_name, site_id, site_name, kind,
              event_timestamp, gps_lat, gps_lon, accuracy_m, device_id, valid, distance_m, synced)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0) RETURNING id`

	var distance sql.NullFloat64
	if draft.DistanceM != nil {
		distance = sql.NullFloat64{Float64: *draft.DistanceM, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query,
		draft.WorkerID, draft.WorkerName, draft.SiteID, draft.SiteName, string(draft.Kind),
		draft.Timestamp, draft.Lat, draft.Lon, draft.AccuracyM, draft.DeviceID, draft.Valid, distance,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}

	s.publishPending(ctx)
	return id, nil
}

// GetEvent fetches one event by local id, nil when absent.
func (s *Store) GetEvent(ctx context.Context, id int64) (*model.AttendanceEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE id = ?`

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return ev, nil
}

// ListUnsynced returns every queued event in capture order.
func (s *Store) ListUnsynced(ctx context.Context) ([]model.AttendanceEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE synced = 0 ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListRecent returns the newest events first, capped at limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]model.AttendanceEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// MarkSynced flips the one-way synced flag and records the id the
// backend assigned. Calling it again for the same event is a no-op, so
// the stored server id is never overwritten.
func (s *Store) MarkSynced(ctx context.Context, id int64, serverID int64) error {
	query := `UPDATE attendance_events SET synced = 1, server_id = ? WHERE id = ? AND synced = 0`

	res, err := s.db.ExecContext(ctx, query, serverID, id)
	if err != nil {
		return mapErr(err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.publishPending(ctx)
	}
	return nil
}

// CountUnsynced reports the current queue depth.
func (s *Store) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM attendance_events WHERE synced = 0`

	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, mapErr(err)
	}
	return count, nil
}

// PurgeSynced deletes synced events whose timestamp sorts before the
// cutoff. Unsynced rows are kept no matter how old they are.
func (s *Store) PurgeSynced(ctx context.Context, before string) (int64, error) {
	query := `DELETE FROM attendance_events WHERE synced = 1 AND event_timestamp < ?`

	res, err := s.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (s *Store) publishPending(ctx context.Context) {
	if count, err := s.CountUnsynced(ctx); err == nil {
		s.feed.Publish(count)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.AttendanceEvent, error) {
	var ev model.AttendanceEvent
	var kind string
	var distance sql.NullFloat64

	err := row.Scan(
		&ev.ID, &ev.ServerID, &ev.WorkerID, &ev.WorkerName, &ev.SiteID, &ev.SiteName, &kind,
		&ev.Timestamp, &ev.Lat, &ev.Lon, &ev.AccuracyM, &ev.DeviceID, &ev.Valid, &distance, &ev.Synced,
	)
	if err != nil {
		return nil, err
	}

	ev.Kind = model.EventKind(kind)
	if distance.Valid {
		d := distance.Float64
		ev.DistanceM = &d
	}
	return &ev, nil
}

func collectEvents(rows *sql.Rows) ([]model.AttendanceEvent, error) {
	var events []model.AttendanceEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		events = append(events, *ev)
	}
	return events, mapErr(rows.Err())
}
