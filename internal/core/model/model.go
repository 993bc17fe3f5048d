package model

import (
	"time"
)

// EventKind is the direction of a clock action.
type EventKind string

const (
	KindIn  EventKind = "IN"
	KindOut EventKind = "OUT"
)

// ParseEventKind maps a wire/user string onto the two-variant kind.
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case KindIn:
		return KindIn, nil
	case KindOut:
		return KindOut, nil
	}
	return "", ErrUnknownEventKind
}

// TimestampLayout is the capture-time wall-clock format used everywhere an
// event timestamp travels: local store, control API, remote API. No offset,
// no conversion; the layout sorts lexicographically in capture order.
const TimestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders t in the event timestamp layout, local wall clock.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// AttendanceEvent is one row of the append-only attendance log. Immutable
// after creation except for Synced and ServerID, which flip exactly once when
// the backend acknowledges the event.
type AttendanceEvent struct {
	ID         int64     `json:"id"`
	ServerID   int64     `json:"serverId,omitempty"` // 0 until synced
	WorkerID   int64     `json:"workerId"`
	WorkerName string    `json:"workerName"`
	SiteID     int64     `json:"siteId"`
	SiteName   string    `json:"siteName"`
	Kind       EventKind `json:"kind"`
	Timestamp  string    `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	AccuracyM  float64   `json:"accuracyM"`
	DeviceID   string    `json:"deviceId"`
	Valid      bool      `json:"valid"`
	DistanceM  *float64  `json:"distanceM"` // nil when no site was resolved at capture time
	Synced     bool      `json:"synced"`
}

// AttendanceEventDraft is the insert shape handed to the event store. The
// store assigns the id and the synced flag.
type AttendanceEventDraft struct {
	WorkerID   int64
	WorkerName string
	SiteID     int64
	SiteName   string
	Kind       EventKind
	Timestamp  string
	Lat        float64
	Lon        float64
	AccuracyM  float64
	DeviceID   string
	Valid      bool
	DistanceM  *float64
}

// Position is a single provider fix.
type Position struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracyM"`
	Time      time.Time `json:"time"`
}

// Site is the locally cached projection of a remote site definition,
// replaced wholesale on every catalog refresh.
type Site struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	RadiusM        float64 `json:"radiusM"`
	OrganizationID int64   `json:"organizationId"`
}

// Worker is the locally cached projection of a remote roster entry.
type Worker struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	EmployeeID     string `json:"employeeId,omitempty"`
	SiteID         int64  `json:"siteId,omitempty"` // 0 when unaffiliated
	OrganizationID int64  `json:"organizationId"`
	IsActive       bool   `json:"isActive"`
}
