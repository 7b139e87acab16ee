// Package reassembly rebuilds logical log events from the physical line
// stream of a single runtime log file.
//
// The runtime writes one main line per event followed by a variable number of
// continuation lines (script/library/line annotations, inline syntax-error
// detail, stack traces) with no explicit terminator. The only boundary signal
// is the arrival of the next main line, so the Reassembler always runs one
// event behind: ConsumeLine returns the previous completed event at the
// moment a new main line appears, and Flush drains the final event at end of
// stream.
//
// A Reassembler is scoped to one file and is not safe for concurrent use;
// the tailing engine owns one per tracked primary file and feeds it lines in
// arrival order.
package reassembly
