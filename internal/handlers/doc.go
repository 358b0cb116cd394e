// Package handlers implements the HTTP API: library listing and
// management, image scan listings, property reads and writes, thumbnail
// delivery, asynchronous imports, and the health, version, and metrics
// endpoints.
package handlers
