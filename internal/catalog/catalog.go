package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/repository"
	"clockout.agent/internal/remote"
)

// Key under which the last successful refresh time is persisted.
const lastRefreshKey = "last_catalog_refresh"

// Store is the slice of the repository the catalog needs.
type Store interface {
	repository.CatalogStore
	repository.StateStore
}

// Service keeps the local site and worker projections in step with the
// backend, and answers all lookups from the cache so capture keeps
// working offline.
type Service struct {
	client remote.Client
	store  Store

	// siteID pins the device to one site when provisioned; 0 means
	// derive it from the login's assigned sites.
	siteID int64
}

// NewService builds the catalog service.
func NewService(client remote.Client, store Store, siteID int64) *Service {
	return &Service{client: client, store: store, siteID: siteID}
}

// Refresh fetches both rosters and replaces the caches wholesale. The
// fetches run in parallel; nothing is written unless both succeed, so a
// flaky network never half-empties the cache.
func (s *Service) Refresh(ctx context.Context) error {
	var (
		sites   []model.Site
		workers []model.Worker
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sites, err = s.client.FetchSites(gctx)
		if err != nil {
			return fmt.Errorf("fetching sites: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		workers, err = s.client.FetchWorkers(gctx)
		if err != nil {
			return fmt.Errorf("fetching workers: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.store.ReplaceSites(ctx, sites); err != nil {
		return fmt.Errorf("replacing site cache: %w", err)
	}
	if err := s.store.ReplaceWorkers(ctx, workers); err != nil {
		return fmt.Errorf("replacing worker cache: %w", err)
	}

	if err := s.store.SetState(ctx, lastRefreshKey, model.FormatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("recording refresh time: %w", err)
	}

	log.Ctx(ctx).Info().
		Int("sites", len(sites)).
		Int("workers", len(workers)).
		Msg("Catalog refreshed")
	return nil
}

// ActiveSite resolves the site this device clocks against: the
// provisioned site id when set, otherwise the first site assigned to
// the authenticated account. The site must exist in the cache.
func (s *Service) ActiveSite(ctx context.Context) (*model.Site, error) {
	id := s.siteID
	if id == 0 {
		if assigned := s.client.Session().User.AssignedSites; len(assigned) > 0 {
			id = assigned[0]
		}
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: no site configured or assigned", model.ErrSiteNotLoaded)
	}
	return s.Site(ctx, id)
}

// Site looks up one cached site, failing closed when it is not loaded.
func (s *Service) Site(ctx context.Context, id int64) (*model.Site, error) {
	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("%w: site %d not in local cache", model.ErrSiteNotLoaded, id)
	}
	return site, nil
}

// Worker resolves a clockable worker. Unknown and inactive workers both
// fail the precondition: an event must never be recorded against a
// roster entry the device cannot vouch for.
func (s *Service) Worker(ctx context.Context, id int64) (*model.Worker, error) {
	if id == 0 {
		return nil, model.ErrWorkerNotSelected
	}

	worker, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, fmt.Errorf("%w: worker %d not in local roster", model.ErrWorkerNotSelected, id)
	}
	if !worker.IsActive {
		return nil, fmt.Errorf("%w: worker %d is inactive", model.ErrWorkerNotSelected, id)
	}
	return worker, nil
}

// Sites lists the cached site roster.
func (s *Service) Sites(ctx context.Context) ([]model.Site, error) {
	return s.store.ListSites(ctx)
}

// Workers lists the cached worker roster.
func (s *Service) Workers(ctx context.Context) ([]model.Worker, error) {
	return s.store.ListWorkers(ctx)
}

// LastRefresh returns the recorded time of the last successful refresh,
// "" when none has completed yet.
func (s *Service) LastRefresh(ctx context.Context) (string, error) {
	return s.store.GetState(ctx, lastRefreshKey)
}
