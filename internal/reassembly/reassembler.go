package reassembly

import (
	"regexp"
	"strconv"
	"strings"

	"bobbin/internal/logevent"
)

// mainLinePattern matches the header that starts every event: identifier,
// manager number, timestamp, scope, severity, message number (with optional
// /suffix), then the free-text message.
var mainLinePattern = regexp.MustCompile(`^(\S+)\s*\((\d+)\),\s*(\d{4}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2}\.\d{3}),\s*([^,]*),\s*([^,]*),\s*([^,]*),\s*(.*)$`)

// framePattern matches one stacktrace frame, "INDEX: FUNCTION at PATH:LINE".
// The path group is greedy so the line number splits at the last colon.
var framePattern = regexp.MustCompile(`^(\d+):\s*(.+?)\s+at\s+(.+):(\d+)$`)

// syntaxErrorPattern matches the continuation the script engine prints after
// a compile failure, "ERRORTYPE, DETAIL, PATH, Line: N".
var syntaxErrorPattern = regexp.MustCompile(`^([^,]+),\s*(.+),\s*([^,]+),\s*Line:\s*(\d+)$`)

const (
	stacktraceHeader = "Stacktrace:"
	scriptPrefix     = "Script:"
	libraryPrefix    = "Library:"
	linePrefix       = "Line:"
)

// Reassembler is the per-file state machine that accumulates continuation
// lines into the currently open event. Zero value is not usable; call New.
type Reassembler struct {
	current     *logevent.Event
	inStack     bool
	reformatted bool
}

// New returns a Reassembler with no open event.
func New() *Reassembler {
	return &Reassembler{}
}

// ConsumeLine feeds one physical line and returns the previously open event
// when line starts a new one. Lines arriving before any main line are
// discarded; continuation lines enrich the open event and return nothing.
func (r *Reassembler) ConsumeLine(line string) (logevent.Event, bool) {
	if m := mainLinePattern.FindStringSubmatch(line); m != nil {
		completed, ok := r.finalize()
		scope := strings.TrimSpace(m[4])
		if scope == "" {
			scope = logevent.ScopeOther
		}
		r.current = &logevent.Event{
			Identifier: m[1],
			Timestamp:  m[3],
			Scope:      scope,
			Severity:   logevent.ParseSeverity(m[5]),
			Message:    strings.TrimSpace(m[7]),
			RawLines:   []string{line},
		}
		return completed, ok
	}

	if r.current == nil {
		// Only lines following a valid main line are continuations.
		return logevent.Event{}, false
	}

	r.current.RawLines = append(r.current.RawLines, line)
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == stacktraceHeader:
		r.inStack = true
		r.meta().Stacktrace = []logevent.StacktraceEntry{}
	case r.inStack:
		r.appendFrame(trimmed)
	case r.reformatSyntaxError(trimmed):
	case strings.HasPrefix(trimmed, scriptPrefix):
		r.meta().Script = strings.TrimSpace(strings.TrimPrefix(trimmed, scriptPrefix))
	case strings.HasPrefix(trimmed, libraryPrefix):
		r.meta().Library = strings.TrimSpace(strings.TrimPrefix(trimmed, libraryPrefix))
	case strings.HasPrefix(trimmed, linePrefix):
		r.setLine(strings.TrimPrefix(trimmed, linePrefix))
	case trimmed != "":
		r.appendRaw(trimmed)
	}
	return logevent.Event{}, false
}

// Flush finalizes and returns the open event at end of stream. Calling it
// again without an intervening main line returns nothing.
func (r *Reassembler) Flush() (logevent.Event, bool) {
	return r.finalize()
}

func (r *Reassembler) finalize() (logevent.Event, bool) {
	r.inStack = false
	r.reformatted = false
	if r.current == nil {
		return logevent.Event{}, false
	}
	event := *r.current
	r.current = nil
	if event.Identifier == "" {
		// Malformed construction; the main-line shape should prevent this.
		return logevent.Event{}, false
	}
	if event.Metadata.Empty() {
		event.Metadata = nil
	}
	return event, true
}

// meta returns the open event's metadata, allocating on first use so events
// without structured continuations finalize with no metadata attached.
func (r *Reassembler) meta() *logevent.Metadata {
	if r.current.Metadata == nil {
		r.current.Metadata = &logevent.Metadata{}
	}
	return r.current.Metadata
}

// appendFrame parses one stacktrace line. Non-frame lines inside a
// stacktrace block are ignored; the block only ends at the next main line.
func (r *Reassembler) appendFrame(trimmed string) {
	m := framePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	line, err := strconv.Atoi(m[4])
	if err != nil {
		return
	}
	meta := r.meta()
	meta.Stacktrace = append(meta.Stacktrace, logevent.StacktraceEntry{
		Index:        index,
		FunctionName: strings.TrimSpace(m[2]),
		FilePath:     strings.TrimSpace(m[3]),
		Line:         line,
	})
}

// reformatSyntaxError applies the one-shot rewrite for script compile
// failures: when the open event's message mentions a syntax error and the
// continuation carries the "ERRORTYPE, DETAIL, PATH, Line: N" shape, the
// message collapses to "ERRORTYPE, DETAIL" and the path and line move into
// metadata. First matching continuation wins.
func (r *Reassembler) reformatSyntaxError(trimmed string) bool {
	if r.reformatted {
		return false
	}
	if !strings.Contains(strings.ToLower(r.current.Message), "syntax error") {
		return false
	}
	m := syntaxErrorPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return false
	}
	number, err := strconv.Atoi(m[4])
	if err != nil {
		return false
	}
	r.current.Message = strings.TrimSpace(m[1]) + ", " + strings.TrimSpace(m[2])
	meta := r.meta()
	meta.Library = strings.TrimSpace(m[3])
	meta.Line = number
	r.reformatted = true
	return true
}

// setLine records the leading integer of a "Line:" continuation. A trailing
// ", variableName" suffix appears in the source text and is dropped.
func (r *Reassembler) setLine(rest string) {
	rest = strings.TrimSpace(rest)
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return
	}
	number, err := strconv.Atoi(rest[:end])
	if err != nil {
		return
	}
	r.meta().Line = number
}

func (r *Reassembler) appendRaw(trimmed string) {
	meta := r.meta()
	if meta.Raw == "" {
		meta.Raw = trimmed
		return
	}
	meta.Raw += "\n" + trimmed
}
