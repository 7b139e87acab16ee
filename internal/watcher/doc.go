// Package watcher delivers OS-level change notifications for the watched
// log directory.
//
// It wraps fsnotify and forwards create and write events for directory
// entries to a buffered channel. Removal and rename events are not
// forwarded: tail state is keyed by path and repaired on the next growth
// notification, so a vanished file simply stops producing events.
package watcher
