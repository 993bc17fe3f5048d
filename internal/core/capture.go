package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/geo"
	"clockout.agent/internal/ports/location"
	"clockout.agent/internal/ports/repository"
	"clockout.agent/pkg/logger"
	"clockout.agent/pkg/telemetry"
)

// Phase names the steps of one capture, mostly for logs and traces.
type Phase string

const (
	PhaseAwaitingLocation Phase = "AWAITING_LOCATION"
	PhaseValidating       Phase = "VALIDATING"
	PhaseRecording        Phase = "RECORDING"
	PhaseDone             Phase = "DONE"
	PhaseFailed           Phase = "FAILED"
)

// Catalog is the slice of the catalog service the capture flow needs.
type Catalog interface {
	ActiveSite(ctx context.Context) (*model.Site, error)
	Site(ctx context.Context, id int64) (*model.Site, error)
	Worker(ctx context.Context, id int64) (*model.Worker, error)
}

// ClockRequest is one tap on the clock-in or clock-out button.
type ClockRequest struct {
	WorkerID int64
	Kind     model.EventKind
}

// Advisory tells the UI whether the clock button should light up. It
// is a hint only; capture itself records out-of-fence attempts too.
type Advisory struct {
	Allowed   bool    `json:"allowed"`
	SiteID    int64   `json:"siteId"`
	SiteName  string  `json:"siteName"`
	DistanceM float64 `json:"distanceM"`
	RadiusM   float64 `json:"radiusM"`
	Reason    string  `json:"reason,omitempty"`
}

// CaptureService drives one clock action end to end: resolve the
// worker and site, demand a fresh fix, run the geofence check, and
// append the event. Out-of-fence attempts are recorded flagged invalid
// instead of being dropped, preserving the audit trail.
type CaptureService struct {
	store      repository.EventStore
	catalog    Catalog
	source     location.Source
	deviceID   string
	fixTimeout time.Duration
	maxFixAge  time.Duration
}

// NewCaptureService creates the capture service, wiring the event
// store, the catalog and the position source.
func NewCaptureService(store repository.EventStore, cat Catalog, source location.Source,
	deviceID string, fixTimeout, maxFixAge time.Duration) *CaptureService {
	return &CaptureService{
		store:      store,
		catalog:    cat,
		source:     source,
		deviceID:   deviceID,
		fixTimeout: fixTimeout,
		maxFixAge:  maxFixAge,
	}
}

// Capture performs one clock action. Precondition failures (unknown
// worker, no site) record nothing; once a fix is obtained the event is
// always appended, flagged invalid when it falls outside the fence.
func (s *CaptureService) Capture(ctx context.Context, req ClockRequest) (*model.AttendanceEvent, error) {
	ctx, span := telemetry.StartCaptureSpan(ctx, req.WorkerID)
	defer span.End()
	ctx = logger.EnrichContextWithLogger(ctx)

	if _, err := model.ParseEventKind(string(req.Kind)); err != nil {
		return nil, err
	}

	worker, err := s.catalog.Worker(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}

	site, err := s.catalog.ActiveSite(ctx)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().Str("phase", string(PhaseAwaitingLocation)).
		Int64("workerId", worker.ID).Msg("Requesting fresh fix")

	fix, err := s.freshFix(ctx)
	if err != nil {
		s.logFailure(ctx, err)
		return nil, err
	}

	log.Ctx(ctx).Debug().Str("phase", string(PhaseValidating)).
		Float64("lat", fix.Lat).Float64("lon", fix.Lon).Msg("Validating against geofence")

	distance, inside := geo.FenceCheck(fix.Lat, fix.Lon, *site)

	draft := model.AttendanceEventDraft{
		WorkerID:   worker.ID,
		WorkerName: worker.Name,
		SiteID:     site.ID,
		SiteName:   site.Name,
		Kind:       req.Kind,
		Timestamp:  model.FormatTimestamp(time.Now()),
		Lat:        fix.Lat,
		Lon:        fix.Lon,
		AccuracyM:  fix.AccuracyM,
		DeviceID:   s.deviceID,
		Valid:      inside,
		DistanceM:  &distance,
	}

	log.Ctx(ctx).Debug().Str("phase", string(PhaseRecording)).Msg("Appending event")

	id, err := s.store.AppendEvent(ctx, draft)
	if err != nil {
		s.logFailure(ctx, err)
		return nil, fmt.Errorf("recording event: %w", err)
	}

	event := &model.AttendanceEvent{
		ID:         id,
		WorkerID:   draft.WorkerID,
		WorkerName: draft.WorkerName,
		SiteID:     draft.SiteID,
		SiteName:   draft.SiteName,
		Kind:       draft.Kind,
		Timestamp:  draft.Timestamp,
		Lat:        draft.Lat,
		Lon:        draft.Lon,
		AccuracyM:  draft.AccuracyM,
		DeviceID:   draft.DeviceID,
		Valid:      draft.Valid,
		DistanceM:  draft.DistanceM,
	}

	logEvent := log.Ctx(ctx).Info()
	if !inside {
		logEvent = log.Ctx(ctx).Warn()
	}
	logEvent.Str("phase", string(PhaseDone)).
		Int64("eventId", id).Str("kind", string(req.Kind)).
		Float64("distanceM", distance).Bool("valid", inside).
		Msg("Clock action recorded")

	return event, nil
}

// CanClock answers the button-enablement poll from a cached fix,
// against the given site or the active one when siteID is zero. A
// missing fix is a negative advisory, not an error; only a missing
// site configuration is surfaced as one.
func (s *CaptureService) CanClock(ctx context.Context, siteID int64) (Advisory, error) {
	var site *model.Site
	var err error
	if siteID != 0 {
		site, err = s.catalog.Site(ctx, siteID)
	} else {
		site, err = s.catalog.ActiveSite(ctx)
	}
	if err != nil {
		return Advisory{}, err
	}

	advisory := Advisory{SiteID: site.ID, SiteName: site.Name, RadiusM: site.RadiusM}

	fixCtx, cancel := context.WithTimeout(ctx, s.fixTimeout)
	defer cancel()

	fix, err := s.source.CurrentFix(fixCtx, location.CachedOK)
	if err != nil {
		advisory.Reason = "location unavailable"
		return advisory, nil
	}

	distance, inside := geo.FenceCheck(fix.Lat, fix.Lon, *site)
	advisory.DistanceM = distance
	advisory.Allowed = inside
	if !inside {
		advisory.Reason = fmt.Sprintf("%.0fm from site, allowed within %.0fm", distance, site.RadiusM)
	}
	return advisory, nil
}

// freshFix demands a brand new reading and rejects anything stale.
func (s *CaptureService) freshFix(ctx context.Context) (model.Position, error) {
	fixCtx, cancel := context.WithTimeout(ctx, s.fixTimeout)
	defer cancel()

	fix, err := s.source.CurrentFix(fixCtx, location.ForceFresh)
	if err != nil {
		return model.Position{}, err
	}

	if s.maxFixAge > 0 && !fix.Time.IsZero() && time.Since(fix.Time) > s.maxFixAge {
		return model.Position{}, fmt.Errorf("%w: fix is %s old", model.ErrLocationUnavailable,
			time.Since(fix.Time).Round(time.Second))
	}
	return fix, nil
}

func (s *CaptureService) logFailure(ctx context.Context, err error) {
	log.Ctx(ctx).Error().Str("phase", string(PhaseFailed)).Err(err).Msg("Clock action failed")
}
