package remote

import (
	"clockout.agent/internal/core/model"
)

// Wire DTOs mirror the backend's JSON exactly: snake_case keys,
// nullable roster fields.

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

type siteDTO struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	OrganizationID int64   `json:"organization_id"`
	Lat            float64 `json:"gps_lat"`
	Lon            float64 `json:"gps_lon"`
	RadiusM        float64 `json:"radius_m"`
}

type workerDTO struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Phone          *string `json:"phone"`
	EmployeeID     *string `json:"employee_id"`
	OrganizationID int64   `json:"organization_id"`
	SiteID         *int64  `json:"site_id"`
	IsActive       bool    `json:"is_active"`
}

// EventUpload is the event submission payload for both the single and
// the bulk endpoint.
type EventUpload struct {
	WorkerID       int64   `json:"worker_id"`
	SiteID         int64   `json:"site_id"`
	DeviceID       string  `json:"device_id"`
	EventType      string  `json:"event_type"`
	EventTimestamp string  `json:"event_timestamp"`
	Lat            float64 `json:"gps_lat"`
	Lon            float64 `json:"gps_lon"`
	AccuracyM      float64 `json:"accuracy_m"`
	Source         string  `json:"source"`
}

// EventAck is the backend's record of one accepted event.
type EventAck struct {
	ID             int64  `json:"id"`
	WorkerID       int64  `json:"worker_id"`
	SiteID         int64  `json:"site_id"`
	EventType      string `json:"event_type"`
	EventTimestamp string `json:"event_timestamp"`
}

// UploadFromEvent translates one stored event to its wire shape.
func UploadFromEvent(ev model.AttendanceEvent) EventUpload {
	return EventUpload{
		WorkerID:       ev.WorkerID,
		SiteID:         ev.SiteID,
		DeviceID:       ev.DeviceID,
		EventType:      string(ev.Kind),
		EventTimestamp: ev.Timestamp,
		Lat:            ev.Lat,
		Lon:            ev.Lon,
		AccuracyM:      ev.AccuracyM,
		Source:         "GPS",
	}
}

func (d siteDTO) toModel() model.Site {
	return model.Site{
		ID:             d.ID,
		Name:           d.Name,
		Lat:            d.Lat,
		Lon:            d.Lon,
		RadiusM:        d.RadiusM,
		OrganizationID: d.OrganizationID,
	}
}

func (d workerDTO) toModel() model.Worker {
	w := model.Worker{
		ID:             d.ID,
		Name:           d.Name,
		OrganizationID: d.OrganizationID,
		IsActive:       d.IsActive,
	}
	if d.Phone != nil {
		w.Phone = *d.Phone
	}
	if d.EmployeeID != nil {
		w.EmployeeID = *d.EmployeeID
	}
	if d.SiteID != nil {
		w.SiteID = *d.SiteID
	}
	return w
}
