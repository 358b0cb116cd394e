// Package catalog maintains the persistent mapping between
// library-relative file paths and stable 32-bit file identifiers.
//
// Ids are allocated monotonically and never reused for the lifetime of
// a library. The mapping survives renames: renaming a path keeps its
// id, so cache files named by id remain valid after files move. The
// mapping is persisted to a JSON sidecar file and reloaded when the
// library is opened; a missing or corrupt file yields an empty catalog
// and every path is simply treated as new.
//
// All mutating operations are serialized by an internal mutex so that
// concurrent scans, imports, and renames on one library cannot race on
// id allocation.
package catalog
