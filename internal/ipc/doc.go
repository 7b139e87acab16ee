// Package ipc exposes the watch daemon over JSON-RPC Unix sockets and
// ships the matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server embeds the daemon while the client decorates calls with a dial
// timeout so CLI commands fail fast when no daemon is listening.
package ipc
