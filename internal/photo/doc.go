// Package photo implements the Image entity of the catalog engine: one
// logical photograph backed by JPEG and/or RAW variant files, a
// two-tier property store (user-edited explicit properties persisted to
// a JSON sidecar, read-only implicit properties derived from the files),
// and asynchronous proxy preparation for display consumers.
//
// Property lookups consult the explicit store first and fall back to
// the implicit store. Explicit writes mark the image pending-write
// until the sidecar is rewritten.
//
// Display consumers register as image hosts and receive decoded proxies
// progressively: a fast low-quality proxy first, then a high-quality
// decode. Deliveries are dispatched on the host's preferred queue when
// it declares one, otherwise on a shared default dispatcher.
package photo
