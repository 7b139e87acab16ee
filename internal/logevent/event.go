package logevent

import "strings"

// Severity classifies an event using the runtime's closed severity set.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeveritySevere  Severity = "SEVERE"
	SeverityDebug   Severity = "DEBUG"
	SeverityOther   Severity = "OTHER"
)

// ScopeOther is the scope recorded when a main line carries no scope token.
const ScopeOther = "OTHER"

// GenericIdentifier marks events synthesized from non-primary log files,
// which carry no structure of their own.
const GenericIdentifier = "LOGFILE"

// TimestampLayout is the fixed timestamp format the runtime writes, also used
// when stamping synthesized generic events.
const TimestampLayout = "2006.01.02 15:04:05.000"

var knownSeverities = []Severity{
	SeverityInfo,
	SeverityWarning,
	SeverityError,
	SeveritySevere,
	SeverityDebug,
}

var severitySet = func() map[Severity]struct{} {
	set := make(map[Severity]struct{}, len(knownSeverities))
	for _, severity := range knownSeverities {
		set[severity] = struct{}{}
	}
	return set
}()

// AllSeverities returns the ordered list of severities, including the
// OTHER fallback.
func AllSeverities() []Severity {
	cp := make([]Severity, len(knownSeverities), len(knownSeverities)+1)
	copy(cp, knownSeverities)
	return append(cp, SeverityOther)
}

// ParseSeverity normalizes a raw severity token. Unrecognized or empty
// tokens map to SeverityOther; the source format has no escaping, so
// garbled tokens are expected and never an error.
func ParseSeverity(value string) Severity {
	normalized := Severity(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := severitySet[normalized]; ok {
		return normalized
	}
	return SeverityOther
}

// Event is one logical log occurrence, immutable once emitted.
type Event struct {
	Identifier string    `json:"identifier"`
	Timestamp  string    `json:"timestamp"`
	Scope      string    `json:"scope"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	RawLines   []string  `json:"raw_lines"`
}

// Metadata carries the structured annotations collected from continuation
// lines. Stacktrace distinguishes empty (header seen, no frames) from absent
// (nil, header never seen).
type Metadata struct {
	Script     string            `json:"script,omitempty"`
	Library    string            `json:"library,omitempty"`
	Line       int               `json:"line,omitempty"`
	Stacktrace []StacktraceEntry `json:"stacktrace"`
	Raw        string            `json:"raw,omitempty"`
}

// Empty reports whether no field was ever populated. The reassembler uses it
// to avoid attaching an all-empty metadata object.
func (m *Metadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.Script == "" && m.Library == "" && m.Line == 0 && m.Stacktrace == nil && m.Raw == ""
}

// StacktraceEntry is one frame as printed by the runtime. Index is preserved
// as given; frames are not required to be contiguous or sorted.
type StacktraceEntry struct {
	Index        int    `json:"index"`
	FunctionName string `json:"function_name"`
	FilePath     string `json:"file_path"`
	Line         int    `json:"line"`
}
