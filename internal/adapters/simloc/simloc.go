package simloc

import (
	"context"
	"fmt"
	"time"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/location"
)

// Source is a fixed-coordinate position provider for development rigs
// and load tests, where no GPS hardware exists.
type Source struct {
	lat, lon  float64
	accuracyM float64
}

// New simulated Source pinned at the given coordinates.
func New(lat, lon, accuracyM float64) *Source {
	return &Source{lat: lat, lon: lon, accuracyM: accuracyM}
}

// CurrentFix returns the pinned position stamped with the current time.
func (s *Source) CurrentFix(ctx context.Context, _ location.Freshness) (model.Position, error) {
	if err := ctx.Err(); err != nil {
		return model.Position{}, fmt.Errorf("%w: %v", model.ErrLocationUnavailable, err)
	}
	return model.Position{Lat: s.lat, Lon: s.lon, AccuracyM: s.accuracyM, Time: time.Now()}, nil
}

// Watch emits the pinned position at the given interval until ctx is
// done. minInterval floors the spacing between emitted fixes.
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

			fix, err := s.CurrentFix(ctx, location.CachedOK)
			if err != nil {
				return
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
