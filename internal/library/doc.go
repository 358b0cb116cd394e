// Package library ties the engine together: each Library owns one
// directory tree of photos, its stable-id catalog, its property cache,
// and its proxy cache directory. A Registry tracks the open libraries
// and persists the non-transient ones.
//
// Libraries mutate files through all-or-nothing operations (copy,
// move, rename, import) that keep the catalog consistent with the
// filesystem, and accept Did* notifications for changes made by other
// programs.
package library
