// Package metrics defines the Prometheus metrics exported by the photo
// catalog daemon.
//
// Metrics are registered at import time using promauto and cover the
// catalog (id allocation, persist operations), directory scanning,
// prefetch decoding and host delivery, import jobs, library file
// mutations, the implicit-property cache, and the filesystem watcher.
//
// To expose them, mount promhttp.Handler() on the router:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	r.Handle("/metrics", promhttp.Handler())
//
// Call InitializeMetrics once at startup so that every label
// combination appears from the first scrape.
package metrics
