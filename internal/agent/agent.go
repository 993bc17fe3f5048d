package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"clockout.agent/internal/catalog"
	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/repository"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
	"clockout.agent/pkg/logger"
)

// Agent owns the device's background loops: draining the event queue,
// refreshing the rosters, and sweeping old synced events. Each loop is
// one ticker; a failed tick changes nothing and the next tick simply
// tries again.
type Agent struct {
	engine  *syncer.Engine
	catalog *catalog.Service
	store   repository.EventStore
	client  remote.Client

	syncInterval    time.Duration
	catalogInterval time.Duration
	purgeInterval   time.Duration
	purgeRetention  time.Duration
}

// Config for the loop cadence, straight from the env config.
type Config struct {
	SyncInterval    time.Duration
	CatalogInterval time.Duration
	PurgeInterval   time.Duration
	PurgeRetention  time.Duration
}

// New creates the agent around the already-wired services.
func New(engine *syncer.Engine, cat *catalog.Service, store repository.EventStore,
	client remote.Client, cfg Config) *Agent {
	return &Agent{
		engine:          engine,
		catalog:         cat,
		store:           store,
		client:          client,
		syncInterval:    cfg.SyncInterval,
		catalogInterval: cfg.CatalogInterval,
		purgeInterval:   cfg.PurgeInterval,
		purgeRetention:  cfg.PurgeRetention,
	}
}

// Run starts every loop and blocks until ctx is canceled.
func (a *Agent) Run(ctx context.Context) {
	ctx = log.Logger.WithContext(ctx)

	log.Ctx(ctx).Info().
		Dur("syncInterval", a.syncInterval).
		Dur("catalogInterval", a.catalogInterval).
		Msg("Agent loops starting")

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.loop(ctx, "catalog_refresh", a.catalogInterval, a.refreshTick)
	}()
	go func() {
		defer wg.Done()
		a.loop(ctx, "sync", a.syncInterval, a.syncTick)
	}()
	go func() {
		defer wg.Done()
		a.loop(ctx, "purge", a.purgeInterval, a.purgeTick)
	}()
	wg.Wait()

	log.Ctx(ctx).Info().Msg("Agent loops stopped")
}

// loop runs one tick immediately, then on every interval until ctx is
// done. Each tick gets its own span so failures are traceable.
func (a *Agent) loop(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	tracer := otel.Tracer("agent")

	runOnce := func() {
		tickCtx, span := tracer.Start(ctx, name)
		defer span.End()
		tick(logger.EnrichContextWithLogger(tickCtx))
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// syncTick pushes one batch. A 401 means the session died server-side;
// log in again and leave the batch queued for the next tick so nothing
// is ever submitted twice.
func (a *Agent) syncTick(ctx context.Context) {
	result, err := a.engine.Sync(ctx)
	if err == nil {
		if result.Submitted > 0 {
			log.Ctx(ctx).Info().Int("submitted", result.Submitted).
				Int("remaining", result.Remaining).Msg("Synced queued events")
		}
		return
	}

	if remote.IsAuthError(err) {
		log.Ctx(ctx).Warn().Msg("Backend rejected session, re-authenticating")
		if _, loginErr := a.client.Login(ctx); loginErr != nil {
			log.Ctx(ctx).Error().Err(loginErr).Msg("Re-authentication failed")
		}
		return
	}

	log.Ctx(ctx).Warn().Err(err).Int("remaining", result.Remaining).
		Msg("Sync attempt failed, events stay queued")
}

func (a *Agent) refreshTick(ctx context.Context) {
	if err := a.catalog.Refresh(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Catalog refresh failed, serving cached rosters")
	}
}

func (a *Agent) purgeTick(ctx context.Context) {
	cutoff := model.FormatTimestamp(time.Now().Add(-a.purgeRetention))

	deleted, err := a.store.PurgeSynced(ctx, cutoff)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Retention sweep failed")
		return
	}
	if deleted > 0 {
		log.Ctx(ctx).Info().Int64("deleted", deleted).Str("cutoff", cutoff).
			Msg("Purged old synced events")
	}
}
