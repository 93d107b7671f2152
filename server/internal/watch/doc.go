// Package watch observes the parameter base directory and reports changes.
//
// Watcher.Run blocks on fsnotify until at least one event arrives, drains
// every event already queued, then calls the change callback once for the
// whole batch. Only direct children of the directory are observed.
//
// The server starts exactly one Watcher at startup and stops it by
// cancelling the context passed to Run.
package watch
