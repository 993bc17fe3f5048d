package location

import (
	"context"
	"time"

	"clockout.agent/internal/core/model"
)

// Freshness tells a Source whether a cached fix is acceptable.
type Freshness int

const (
	// CachedOK accepts the most recent fix the source already holds.
	CachedOK Freshness = iota
	// ForceFresh demands a brand new reading from the hardware.
	ForceFresh
)

// Source contract for position providers (gpsd, simulator).
type Source interface {
	// CurrentFix returns a position honoring the freshness request. It
	// blocks until a fix arrives or ctx is done, and returns
	// model.ErrLocationUnavailable when the provider cannot deliver one.
	CurrentFix(ctx context.Context, freshness Freshness) (model.Position, error)

	// Watch streams fixes at roughly the given interval until ctx is
	// done, never emitting two fixes closer together than minInterval.
	// The channel is closed on cancellation.
	Watch(ctx context.Context, interval, minInterval time.Duration) (<-chan model.Position, error)
}
