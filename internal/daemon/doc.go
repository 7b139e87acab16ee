// Package daemon coordinates the long-running Bobbin watch process.
//
// It wires configuration, the event archive, the in-memory event hub, the
// tail engine, and the directory watcher into a single lifecycle with
// flock-based locking to prevent multiple instances tailing the same
// directory. The daemon exposes pause/resume control and live event access
// for the IPC layer and owns the optional Kafka forwarder.
//
// Keep orchestration logic here: parsing, offset tracking, and persistence
// live in their respective packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
