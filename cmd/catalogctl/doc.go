// Command catalogctl provides a CLI utility for offline maintenance of the
// photo catalog's on-disk state.
//
// It supports the following operations:
//   - status: List registered libraries with image counts
//   - sync: Persist every library's catalog and the registry file
//   - empty-caches: Delete cached proxies and EXIF data for all libraries
//
// Usage:
//
//	catalogctl <command>
//
// Commands:
//
//	status        Print each registered library's id, name, root path and
//	              the number of logical images found by a recursive scan.
//
//	sync          Flush every library's path catalog to disk and rewrite
//	              the registry file. Safe to run while the server is down;
//	              running it against a live server's cache directory may
//	              race with the server's own writes.
//
//	empty-caches  Remove the proxy and EXIF caches for every library.
//	              Caches are rebuilt lazily on the next prefetch.
//
// Environment:
//
//	CACHE_DIR - Path to the cache directory (default: /cache)
//
// Notes:
//
// catalogctl operates on the same registry file and per-library cache
// directories as the server. The catalog files themselves live inside the
// cache directory, so pointing CACHE_DIR somewhere else yields an empty
// registry rather than an error.
package main
