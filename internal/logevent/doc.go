// Package logevent defines the event model shared by the reassembly,
// tailing, archive, and forwarding layers.
//
// An Event is one logical occurrence reconstructed from one or more physical
// log lines. The timestamp is kept as the source's fixed-format string rather
// than a time.Time so events render exactly as the runtime wrote them.
// Metadata is attached only when continuation lines contributed structured or
// raw content; an all-empty metadata object is never attached.
package logevent
