// Package archive persists completed log events to SQLite.
//
// Each watch session gets a row in the sessions table; every event emitted
// during the session is recorded with its metadata and raw lines serialized
// as JSON. The Sink type adapts the store to the hub's sink interface so
// archiving rides the normal fan-out path.
package archive
