package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stand-in for the ClockOut backend, good enough for local agent runs:
// any username/password logs in, one site, three workers, submitted
// events get incrementing ids and are not stored.

type userPayload struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	Mode           string  `json:"mode"`
	AssignedSites  []int64 `json:"assigned_sites"`
	OrganizationID int64   `json:"organization_id"`
}

type sitePayload struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	OrganizationID int64   `json:"organization_id"`
	Lat            float64 `json:"gps_lat"`
	Lon            float64 `json:"gps_lon"`
	RadiusM        float64 `json:"radius_m"`
}

type workerPayload struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Phone          *string `json:"phone"`
	EmployeeID     *string `json:"employee_id"`
	OrganizationID int64   `json:"organization_id"`
	SiteID         *int64  `json:"site_id"`
	IsActive       bool    `json:"is_active"`
}

type eventPayload struct {
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

type eventAck struct {
	ID             int64  `json:"id"`
	WorkerID       int64  `json:"worker_id"`
	SiteID         int64  `json:"site_id"`
	EventType      string `json:"event_type"`
	EventTimestamp string `json:"event_timestamp"`
}

var nextEventID atomic.Int64

func siteSeven() sitePayload {
	return sitePayload{ID: 7, Name: "Lekki Tower", OrganizationID: 3, Lat: 6.5244, Lon: 3.3792, RadiusM: 100}
}

func roster() []workerPayload {
	siteID := int64(7)
	phone := "+2348012345678"
	return []workerPayload{
		{ID: 1, Name: "Ada Obi", Phone: &phone, OrganizationID: 3, SiteID: &siteID, IsActive: true},
		{ID: 2, Name: "Bode Akin", OrganizationID: 3, SiteID: &siteID, IsActive: true},
		{ID: 3, Name: "Chidi Eze", OrganizationID: 3, IsActive: false},
	}
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostFormValue("username") == "" {
		http.Error(w, `{"detail":"Incorrect email or password"}`, http.StatusUnauthorized)
		return
	}

	log.Printf("Login from %s", r.PostFormValue("username"))
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": uuid.NewString(),
		"token_type":   "bearer",
		"user": userPayload{
			ID: 1, Email: r.PostFormValue("username"), FullName: "Mock Supervisor",
			Role: "supervisor", Mode: "normal", AssignedSites: []int64{7}, OrganizationID: 3,
		},
	})
}

// authed rejects requests without a bearer token, mirroring the real
// backend's OAuth2 dependency.
func authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func sitesHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode([]sitePayload{siteSeven()})
}

func workersHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(roster())
}

func ackFor(ev eventPayload) eventAck {
	return eventAck{
		ID:             nextEventID.Add(1),
		WorkerID:       ev.WorkerID,
		SiteID:         ev.SiteID,
		EventType:      ev.EventType,
		EventTimestamp: ev.EventTimestamp,
	}
}

func eventHandler(w http.ResponseWriter, r *http.Request) {
	var ev eventPayload
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log.Printf("Received %s for worker %d at %s", ev.EventType, ev.WorkerID, ev.EventTimestamp)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ackFor(ev))
}

func bulkHandler(w http.ResponseWriter, r *http.Request) {
	var events []eventPayload
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	acks := make([]eventAck, 0, len(events))
	for _, ev := range events {
		acks = append(acks, ackFor(ev))
	}

	log.Printf("Received bulk batch of %d events", len(events))
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(acks)
}

func main() {
	http.HandleFunc("POST /api/v1/auth/login", loginHandler)
	http.HandleFunc("GET /api/v1/sites", authed(sitesHandler))
	http.HandleFunc("GET /api/v1/workers", authed(workersHandler))
	http.HandleFunc("POST /api/v1/events", authed(eventHandler))
	http.HandleFunc("POST /api/v1/events/bulk", authed(bulkHandler))

	log.Println("Backend mock server starting on port 8000...")
	log.Fatal(http.ListenAndServe(":8000", nil))
}
