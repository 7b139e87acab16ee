// Package main hosts the Bobbin CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the foreground watch process and
// translates terminal invocations into IPC calls against it: status, pause
// and resume control, live event tailing, archive queries, and configuration
// scaffolding. It centralizes configuration resolution and socket discovery
// so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
