// Package watcher observes a library root with fsnotify and translates
// raw filesystem events into library notifications: renames performed
// by other programs keep their stable ids, removals evict catalog
// entries, and every event raises a directory-changed signal.
package watcher
