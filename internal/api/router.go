package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"clockout.agent/internal/api/handler"
	"clockout.agent/internal/catalog"
	"clockout.agent/internal/core"
	"clockout.agent/internal/ports/repository"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
)

// NewRouter sets up the gorilla/mux router and defines all control API routes.
func NewRouter(capture *core.CaptureService, cat *catalog.Service, engine *syncer.Engine,
	store repository.Store, client remote.Client, deviceID string) *mux.Router {

	h := handler.Handler{
		Capture:  capture,
		Catalog:  cat,
		Engine:   engine,
		Store:    store,
		Client:   client,
		DeviceID: deviceID,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/clock", h.Clock).Methods(http.MethodPost)
	api.HandleFunc("/can-clock", h.CanClock).Methods(http.MethodGet)
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/status/ws", h.StatusStream).Methods(http.MethodGet)
	api.HandleFunc("/sync", h.TriggerSync).Methods(http.MethodPost)
	api.HandleFunc("/catalog/refresh", h.RefreshCatalog).Methods(http.MethodPost)
	api.HandleFunc("/sites", h.Sites).Methods(http.MethodGet)
	api.HandleFunc("/workers", h.Workers).Methods(http.MethodGet)
	api.HandleFunc("/events/recent", h.RecentEvents).Methods(http.MethodGet)
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	return r
}
