package model

import "errors"

// Capture and storage failure taxonomy. All of these abort a single operation
// and are reported to the caller; none of them is retried automatically.
var (
	// ErrLocationUnavailable means no acceptable fix was obtained: provider
	// unreachable, permission denied, timeout, or only a stale fix on hand.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrSiteNotLoaded means the active site is absent from the local cache,
	// so the geofence cannot be evaluated. Capture fails closed.
	ErrSiteNotLoaded = errors.New("site not loaded")

	// ErrWorkerNotSelected means no worker was identified against the cached
	// roster. Capture fails closed.
	ErrWorkerNotSelected = errors.New("worker not selected")

	// ErrStorageFull is the single-call-fatal mapping of an out-of-space
	// failure from the local medium.
	ErrStorageFull = errors.New("local storage full")

	// ErrStorageUnavailable covers every other local medium failure.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	ErrUnknownEventKind = errors.New("unknown event kind")
)
