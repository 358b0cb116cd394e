// Package startup owns process bring-up: environment configuration,
// directory validation, build information, and the structured startup
// and shutdown log output.
//
// Configuration comes from environment variables:
//
//	LIBRARY_DIR       root of the default photo library (default /photos)
//	CACHE_DIR         proxy and catalog cache root (default /cache)
//	PORT              HTTP listen port (default 8080)
//	METRICS_PORT      Prometheus listen port (default 9090)
//	METRICS_ENABLED   expose /metrics (default true)
//	PREFETCH_WORKERS  decode worker count (default NumCPU, max 8)
//	WATCH_ENABLED     observe external filesystem changes (default true)
//	LOG_HEALTH_CHECKS log health endpoint hits (default false)
//	LOG_LEVEL         handled by the logging package
//
// Build-time variables Version, Commit, and BuildTime are injected via
// -ldflags.
package startup
