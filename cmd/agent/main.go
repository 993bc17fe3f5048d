// Entry point for the on-device attendance agent
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clockout.agent/internal/adapters/gpsd"
	"clockout.agent/internal/adapters/simloc"
	"clockout.agent/internal/adapters/sqlitestore"
	"clockout.agent/internal/agent"
	"clockout.agent/internal/api"
	"clockout.agent/internal/catalog"
	"clockout.agent/internal/config"
	"clockout.agent/internal/core"
	"clockout.agent/internal/device"
	"clockout.agent/internal/ports/location"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
	"clockout.agent/pkg/database"
	"clockout.agent/pkg/logger"
	"clockout.agent/pkg/telemetry"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("clockout-agent", cfg.TraceExporter, cfg.TraceOTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Local event store
	db, err := database.NewInstrumentedConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()

	store, err := sqlitestore.New(context.Background(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}
	log.Info().Str("path", cfg.DBPath).Msg("Event store ready")

	deviceID, err := device.Resolve(context.Background(), cfg.DeviceID, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not resolve device id")
	}
	log.Info().Str("deviceId", deviceID).Msg("Device identity resolved")

	// Position source
	var source location.Source
	switch cfg.LocationSource {
	case "gpsd":
		source = gpsd.New(cfg.GpsdAddr, cfg.FixMaxAge)
	case "sim":
		source = simloc.New(cfg.SimLat, cfg.SimLon, cfg.SimAccuracyM)
	default:
		log.Fatal().Str("source", cfg.LocationSource).Msg("Unknown LOCATION_SOURCE")
	}

	// Initialize dependencies
	client := remote.NewHTTPClient(cfg.BackendURL, cfg.BackendUsername, cfg.BackendPassword, cfg.HTTPTimeout)
	cat := catalog.NewService(client, store, cfg.SiteID)
	engine := syncer.NewEngine(store, client, cfg.SyncBatchSize)
	capture := core.NewCaptureService(store, cat, source, deviceID, cfg.FixTimeout, cfg.FixMaxAge)

	// Background loops: sync, catalog refresh, purge
	loops := agent.New(engine, cat, store, client, agent.Config{
		SyncInterval:    cfg.SyncInterval,
		CatalogInterval: cfg.CatalogInterval,
		PurgeInterval:   cfg.PurgeInterval,
		PurgeRetention:  cfg.PurgeRetention,
	})

	loopCtx, stopLoops := context.WithCancel(context.Background())
	loopsDone := make(chan struct{})
	go func() {
		loops.Run(loopCtx)
		close(loopsDone)
	}()

	// Setup router and server
	router := api.NewRouter(capture, cat, engine, store, client, deviceID)

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handler := otelhttp.NewHandler(loggerMiddleware(router), "agent")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Attendance agent starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down agent...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	stopLoops()
	<-loopsDone

	log.Info().Msg("Agent exiting")
}
