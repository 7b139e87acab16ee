// Package hub fans completed log events out to interested consumers.
//
// The hub keeps a bounded in-memory ring of recent entries with monotonic
// sequence numbers so late consumers can catch up, and wakes blocked Fetch
// callers whenever a new entry arrives. Registered sinks receive every
// published entry in publish order.
package hub
