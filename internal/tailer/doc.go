// Package tailer turns file growth notifications into completed log events.
//
// The engine tracks one byte offset per file in the watched directory.
// Start records the current size of every matching file so pre-existing
// content is never parsed; growth notifications then advance each offset
// past exactly the bytes that arrived. Content in the primary runtime log
// is fed through a per-file reassembler, every other matching file emits
// one generic event per line.
//
// Growth notifications are expected to arrive on a single goroutine (the
// daemon drains the watcher channel serially). Pause, Resume, Stop and the
// status accessors are safe to call concurrently with that loop.
package tailer
