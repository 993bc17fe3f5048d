package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"clockout.agent/internal/core/model"
)

// ReplaceSites swaps the whole cached site roster in one transaction.
func (s *Store) ReplaceSites(ctx context.Context, sites []model.Site) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sites`); err != nil {
		return mapErr(err)
	}

	query := `INSERT INTO sites (id, name, gps_lat, gps_lon, radius_m, organization_id)
              VALUES (?, ?, ?, ?, ?, ?)`
	for _, site := range sites {
		if _, err := tx.ExecContext(ctx, query,
			site.ID, site.Name, site.Lat, site.Lon, site.RadiusM, site.OrganizationID); err != nil {
			return fmt.Errorf("inserting site %d: %w", site.ID, mapErr(err))
		}
	}

	return mapErr(tx.Commit())
}

// ReplaceWorkers swaps the whole cached worker roster in one transaction.
func (s *Store) ReplaceWorkers(ctx context.Context, workers []model.Worker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workers`); err != nil {
		return mapErr(err)
	}

	query := `INSERT INTO workers (id, name, phone, employee_id, site_id, organization_id, is_active)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, w := range workers {
		if _, err := tx.ExecContext(ctx, query,
			w.ID, w.Name, w.Phone, w.EmployeeID, w.SiteID, w.OrganizationID, w.IsActive); err != nil {
			return fmt.Errorf("inserting worker %d: %w", w.ID, mapErr(err))
		}
	}

	return mapErr(tx.Commit())
}

// GetSite fetches one cached site, nil when absent.
func (s *Store) GetSite(ctx context.Context, id int64) (*model.Site, error) {
	query := `SELECT id, name, gps_lat, gps_lon, radius_m, organization_id FROM sites WHERE id = ?`

	var site model.Site
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&site.ID, &site.Name, &site.Lat, &site.Lon, &site.RadiusM, &site.OrganizationID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &site, nil
}

// GetWorker fetches one cached worker, nil when absent.
func (s *Store) GetWorker(ctx context.Context, id int64) (*model.Worker, error) {
	query := `SELECT id, name, phone, employee_id, site_id, organization_id, is_active
              FROM workers WHERE id = ?`

	var w model.Worker
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.Name, &w.Phone, &w.EmployeeID, &w.SiteID, &w.OrganizationID, &w.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

// ListSites returns every cached site.
func (s *Store) ListSites(ctx context.Context) ([]model.Site, error) {
	query := `SELECT id, name, gps_lat, gps_lon, radius_m, organization_id FROM sites ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.Lat, &site.Lon, &site.RadiusM, &site.OrganizationID); err != nil {
			return nil, mapErr(err)
		}
		sites = append(sites, site)
	}
	return sites, mapErr(rows.Err())
}

// ListWorkers returns every cached worker ordered for roster display.
func (s *Store) ListWorkers(ctx context.Context) ([]model.Worker, error) {
	query := `SELECT id, name, phone, employee_id, site_id, organization_id, is_active
              FROM workers ORDER BY name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		var w model.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.Phone, &w.EmployeeID, &w.SiteID, &w.OrganizationID, &w.IsActive); err != nil {
			return nil, mapErr(err)
		}
		workers = append(workers, w)
	}
	return workers, mapErr(rows.Err())
}
