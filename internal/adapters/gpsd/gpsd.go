package gpsd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/location"
)

// watchCommand switches the daemon into JSON streaming mode.
const watchCommand = "?WATCH={\"enable\":true,\"json\":true};\n"

// Source reads fixes from a local gpsd daemon over its JSON TCP
// protocol. Each fresh read opens a short-lived connection; the last
// good fix is cached for CachedOK reads.
type Source struct {
	addr   string
	maxAge time.Duration
	dialer net.Dialer

	mu      sync.Mutex
	lastFix model.Position
	hasFix  bool
}

// New gpsd Source. maxAge bounds how stale a cached fix may be before
// a CachedOK read falls back to the daemon.
func New(addr string, maxAge time.Duration) *Source {
	return &Source{addr: addr, maxAge: maxAge}
}

// tpvReport is the subset of gpsd's TPV class the agent consumes.
// Pointer fields because gpsd omits them while acquiring satellites.
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Eph   *float64 `json:"eph"`
	Epx   *float64 `json:"epx"`
	Epy   *float64 `json:"epy"`
}

func (r tpvReport) accuracy() float64 {
	if r.Eph != nil {
		return *r.Eph
	}
	var acc float64
	if r.Epx != nil {
		acc = *r.Epx
	}
	if r.Epy != nil && *r.Epy > acc {
		acc = *r.Epy
	}
	return acc
}

func (r tpvReport) fixTime() time.Time {
	if t, err := time.Parse(time.RFC3339, r.Time); err == nil {
		return t
	}
	return time.Now()
}

// CurrentFix returns a position honoring the freshness request.
func (s *Source) CurrentFix(ctx context.Context, freshness location.Freshness) (model.Position, error) {
	if freshness == location.CachedOK {
		if fix, ok := s.cached(); ok {
			return fix, nil
		}
	}

	fix, err := s.readFix(ctx)
	if err != nil {
		return model.Position{}, err
	}

	s.mu.Lock()
	s.lastFix = fix
	s.hasFix = true
	s.mu.Unlock()

	return fix, nil
}

// Watch polls the daemon at the given interval and streams fixes until
// ctx is done. minInterval floors the spacing between emitted fixes.
func (s *Source) Watch(ctx context.Context, interval, minInterval time.Duration) (<-chan model.Position, error) {
	if interval < minInterval {
		interval = minInterval
	}

	out := make(chan model.Position, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			fix, err := s.CurrentFix(ctx, location.ForceFresh)
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Msg("gpsd watch poll failed")
				continue
			}

			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *Source) cached() (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasFix || time.Since(s.lastFix.Time) > s.maxAge {
		return model.Position{}, false
	}
	return s.lastFix, true
}

// readFix dials the daemon, enables the JSON watch, and waits for the
// first TPV report carrying an actual fix (mode 2 or 3).
func (s *Source) readFix(ctx context.Context) (model.Position, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: dialing gpsd at %s: %v", model.ErrLocationUnavailable, s.addr, err)
	}
	defer conn.Close()

	// unblock pending reads if the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return model.Position{}, fmt.Errorf("%w: enabling gpsd watch: %v", model.ErrLocationUnavailable, err)
	}

	dec := json.NewDecoder(conn)
	for {
		var report tpvReport
		if err := dec.Decode(&report); err != nil {
			if ctx.Err() != nil {
				return model.Position{}, fmt.Errorf("%w: %v", model.ErrLocationUnavailable, ctx.Err())
			}
			return model.Position{}, fmt.Errorf("%w: reading gpsd stream: %v", model.ErrLocationUnavailable, err)
		}

		if report.Class != "TPV" || report.Mode < 2 || report.Lat == nil || report.Lon == nil {
			continue
		}

		return model.Position{
			Lat:       *report.Lat,
			Lon:       *report.Lon,
			AccuracyM: report.accuracy(),
			Time:      report.fixTime(),
		}, nil
	}
}
