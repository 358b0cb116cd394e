// Package fsutil provides filesystem primitives for library file
// mutations: durable atomic copies, rename with cross-device fallback,
// and retry logic for stale NFS file handles.
//
// Copies are written to a temporary file in the destination directory,
// fsynced, then renamed into place. A destination is therefore never
// observed half-written, and callers may safely delete a source file
// once the copy returns.
package fsutil
