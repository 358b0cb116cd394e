// Package store provides low-level file primitives scoped to one
// library root. All inputs are library-relative, slash-separated paths;
// anything that would escape the root (absolute paths, ".." traversal)
// is rejected before touching the filesystem.
//
// The store does not retry or interpret failures. Filesystem errors are
// wrapped with operation context and surfaced to the caller, which
// decides whether to propagate or retry.
package store
