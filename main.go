package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-catalog/internal/decode"
	"photo-catalog/internal/handlers"
	"photo-catalog/internal/library"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/middleware"
	"photo-catalog/internal/startup"
	"photo-catalog/internal/watcher"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Initialize the decoder
	if err := decode.InitVips(); err != nil {
		logging.Warn("Failed to initialize libvips: %v", err)
	}
	defer decode.ShutdownVips()
	startup.LogDecoderInit(decode.IsVipsAvailable())
	decoder := decode.New()

	// Load the library registry and make sure the default library is
	// registered
	regStart := time.Now()
	registry, err := library.NewRegistry(config.RegistryPath, config.CacheDir, decoder, config.PrefetchWorkers)
	if err != nil {
		startup.LogFatal("Failed to load library registry: %v", err)
	}
	if _, err := registry.ByPath(config.LibraryDir, true); err != nil {
		startup.LogFatal("Failed to open default library %s: %v", config.LibraryDir, err)
	}
	startup.LogRegistryInit(len(registry.All()), time.Since(regStart))

	// Start filesystem watchers
	var watchers []*watcher.Watcher
	if config.WatchEnabled {
		for _, lib := range registry.All() {
			w, err := watcher.New(lib)
			if err != nil {
				logging.Error("Failed to watch library %s: %v", lib.Path(), err)
				continue
			}
			watchers = append(watchers, w)
		}
	}
	startup.LogWatcherInit(config.WatchEnabled, len(watchers))

	// Initialize handlers
	h := handlers.New(registry, decoder)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	meteredHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(meteredHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Dedicated metrics listener for scrapers
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, registry, watchers)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/libraries", h.ListLibraries).Methods("GET")
	api.HandleFunc("/libraries", h.AddLibrary).Methods("POST")
	api.HandleFunc("/libraries/{id}", h.RemoveLibrary).Methods("DELETE")
	api.HandleFunc("/libraries/{id}/sync", h.SyncLibrary).Methods("POST")
	api.HandleFunc("/libraries/{id}/images", h.ListImages).Methods("GET")
	api.HandleFunc("/libraries/{id}/images/{fileId}/properties", h.GetProperties).Methods("GET")
	api.HandleFunc("/libraries/{id}/images/{fileId}/properties", h.PatchProperties).Methods("PATCH")
	api.HandleFunc("/libraries/{id}/images/{fileId}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/libraries/{id}/import", h.StartImport).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, registry *library.Registry, watchers []*watcher.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping filesystem watchers")
	for _, w := range watchers {
		if err := w.Close(); err != nil {
			logging.Warn("Watcher close error: %v", err)
		}
	}
	startup.LogShutdownStepComplete("Watchers stopped")

	startup.LogShutdownStep("Closing library registry")
	if err := registry.Close(); err != nil {
		logging.Warn("Registry close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Registry closed")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
