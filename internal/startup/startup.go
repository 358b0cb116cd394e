package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	LibraryDir      string
	CacheDir        string
	Port            string
	MetricsPort     string
	PrefetchWorkers int
	WatchEnabled    bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	RegistryPath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	libraryDir := getEnv("LIBRARY_DIR", "/photos")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	prefetchWorkers := getEnvInt("PREFETCH_WORKERS", defaultWorkerCount())
	watchEnabled := getEnvBool("WATCH_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  LIBRARY_DIR:         %s", libraryDir)
	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  PREFETCH_WORKERS:    %d", prefetchWorkers)
	logging.Info("  WATCH_ENABLED:       %v", watchEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if prefetchWorkers < 1 {
		logging.Warn("  Invalid PREFETCH_WORKERS, using default: %d", defaultWorkerCount())
		prefetchWorkers = defaultWorkerCount()
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	libraryDir, err := filepath.Abs(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory path: %w", err)
	}
	logging.Info("  Library directory (absolute): %s", libraryDir)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	// Check/create library directory (warning only)
	if err := ensureDirectory(libraryDir, "library"); err != nil {
		logging.Warn("  Library directory issue: %v", err)
	}

	config := &Config{
		LibraryDir:      libraryDir,
		CacheDir:        cacheDir,
		Port:            port,
		MetricsPort:     metricsPort,
		PrefetchWorkers: prefetchWorkers,
		WatchEnabled:    watchEnabled,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
		RegistryPath:    filepath.Join(cacheDir, "libraries.json"),
	}

	// The cache directory carries the registry and the per-library
	// cache dirs (catalog, property database, proxies). It is required.
	if err := ensureDirectory(cacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}

	logging.Debug("  Testing cache directory write access...")
	if err := testWriteAccess(cacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable (required for catalogs and proxies): %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Catalog:   ENABLED (required)")
	logging.Info("    Watcher:   %s", enabledString(config.WatchEnabled))
	logging.Info("    Metrics:   %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func defaultWorkerCount() int {
	// Decode tasks are CPU-bound; cap so one big box cannot starve the
	// request path.
	return workers.ForCPU(8)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDecoderInit logs decoder initialization and the vips probe result
func LogDecoderInit(vipsAvailable bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DECODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if vipsAvailable {
		logging.Info("  [OK] libvips is available (fast proxy decode)")
	} else {
		logging.Warn("  libvips unavailable, falling back to pure-Go decoding")
		logging.Warn("  Low-quality proxies will be slower to produce")
	}
}

// LogRegistryInit logs library registry initialization
func LogRegistryInit(libraries int, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LIBRARY REGISTRY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Registry loaded in %v (%d libraries)", duration, libraries)
}

// LogWatcherInit logs filesystem watcher startup
func LogWatcherInit(enabled bool, libraries int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("FILESYSTEM WATCHER")
	logging.Info("------------------------------------------------------------")
	if !enabled {
		logging.Info("  Watcher disabled (set WATCH_ENABLED=true to enable)")
		return
	}
	logging.Info("  [OK] Watching %d library roots", libraries)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., a catch-all)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __           ______      __        __
   / __ \/ /_  ____  / /_____     / ____/___ _/ /_____ _/ /___  ____ _
  / /_/ / __ \/ __ \/ __/ __ \   / /   / __ '/ __/ __ '/ / __ \/ __ '/
 / ____/ / / / /_/ / /_/ /_/ /  / /___/ /_/ / /_/ /_/ / / /_/ / /_/ /
/_/   /_/ /_/\____/\__/\____/   \____/\__,_/\__/\__,_/_/\____/\__, /
                                                             /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "library" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed regardless
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
