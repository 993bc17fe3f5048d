package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clockout.agent/internal/catalog"
	"clockout.agent/internal/core"
	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/repository"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
)

// Handler serves the local control API consumed by the kiosk UI and
// clockctl.
type Handler struct {
	Capture  *core.CaptureService
	Catalog  *catalog.Service
	Engine   *syncer.Engine
	Store    repository.Store
	Client   remote.Client
	DeviceID string
}

type ClockRequest struct {
	WorkerID int64  `json:"workerId"`
	Kind     string `json:"kind"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Clock performs one capture. Out-of-fence attempts still get a 201;
// the event body carries valid=false and the measured distance.
func (h *Handler) Clock(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	if req.WorkerID == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "workerId is required")
		return
	}

	event, err := h.Capture.Capture(r.Context(), core.ClockRequest{
		WorkerID: req.WorkerID,
		Kind:     model.EventKind(req.Kind),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// CanClock previews the geofence verdict for the active site, or for
// ?site_id= when given, without recording anything.
func (h *Handler) CanClock(w http.ResponseWriter, r *http.Request) {
	var siteID int64
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "site_id must be an integer")
			return
		}
		siteID = parsed
	}

	advisory, err := h.Capture.CanClock(r.Context(), siteID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, advisory)
}

type StatusResponse struct {
	DeviceID           string          `json:"deviceId"`
	Pending            int             `json:"pending"`
	Site               *model.Site     `json:"site,omitempty"`
	SiteError          string          `json:"siteError,omitempty"`
	LastSync           *syncer.Outcome `json:"lastSync,omitempty"`
	CatalogRefreshedAt string          `json:"catalogRefreshedAt,omitempty"`
	BackendUser        string          `json:"backendUser,omitempty"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.Store.CountUnsynced(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := StatusResponse{
		DeviceID: h.DeviceID,
		Pending:  pending,
	}

	if site, err := h.Catalog.ActiveSite(ctx); err == nil {
		resp.Site = site
	} else {
		resp.SiteError = err.Error()
	}

	if outcome := h.Engine.LastOutcome(); !outcome.At.IsZero() {
		resp.LastSync = &outcome
	}

	if mark, err := h.Catalog.LastRefresh(ctx); err == nil {
		resp.CatalogRefreshedAt = mark
	}

	if sess := h.Client.Session(); sess.Token != "" {
		resp.BackendUser = sess.User.Email
	}

	writeJSON(w, http.StatusOK, resp)
}

// TriggerSync drains one batch right now instead of waiting for the
// timer. The queue is untouched when the attempt fails.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.Sync(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "SYNC_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "REFRESH_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Catalog refreshed."})
}

func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Catalog.Sites(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sites)
}

func (h *Handler) Workers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Catalog.Workers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workers)
}

func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > 200 {
		limit = 200
	}

	events, err := h.Store.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Service is operational."))
}

// writeDomainError maps the capture pipeline's sentinel errors onto
// status codes and stable machine-readable codes for the kiosk.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrUnknownEventKind):
		writeError(w, http.StatusBadRequest, "UNKNOWN_EVENT_KIND", err.Error())
	case errors.Is(err, model.ErrWorkerNotSelected):
		writeError(w, http.StatusConflict, "WORKER_NOT_SELECTED", err.Error())
	case errors.Is(err, model.ErrSiteNotLoaded):
		writeError(w, http.StatusConflict, "SITE_NOT_LOADED", err.Error())
	case errors.Is(err, model.ErrLocationUnavailable):
		writeError(w, http.StatusServiceUnavailable, "LOCATION_UNAVAILABLE", err.Error())
	case errors.Is(err, model.ErrStorageFull):
		writeError(w, http.StatusInsufficientStorage, "STORAGE_FULL", err.Error())
	case errors.Is(err, model.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
