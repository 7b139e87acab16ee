package tailer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"bobbin/internal/logevent"
	"bobbin/internal/logging"
	"bobbin/internal/reassembly"
)

// ErrAlreadyStarted is returned when Start is called on a running engine.
var ErrAlreadyStarted = errors.New("tail engine already started")

// Options configures a tail engine.
type Options struct {
	// Dir is the absolute path of the watched directory.
	Dir string
	// PrimaryLog is the base name of the runtime log whose content is
	// reassembled into structured events.
	PrimaryLog string
	// Pattern is the glob matched against base names; non-matching files
	// are ignored entirely.
	Pattern string
	// Emit receives every completed event. Called from the goroutine that
	// drives HandleGrowth and Stop.
	Emit func(logevent.Event)
	// Now supplies timestamps for generic events. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Engine tracks per-file read offsets and feeds new content to the
// reassembler or the generic event path.
type Engine struct {
	dir     string
	primary string
	pattern string
	emit    func(logevent.Event)
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	files   map[string]*fileState
	started bool
	paused  bool
}

// New constructs an engine. Start must be called before notifications are
// handled.
func New(opts Options) *Engine {
	emit := opts.Emit
	if emit == nil {
		emit = func(logevent.Event) {}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		dir:     opts.Dir,
		primary: strings.ToLower(opts.PrimaryLog),
		pattern: strings.ToLower(opts.Pattern),
		emit:    emit,
		now:     now,
		logger:  logger,
	}
}

// Start inventories the watch directory and records the current size of
// every matching file as its initial offset, so content that predates the
// session is never parsed. A directory listing failure is fatal.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("inventory %s: %w", e.dir, err)
	}

	files := make(map[string]*fileState)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !e.matches(name) {
			continue
		}
		path := filepath.Join(e.dir, name)
		size, id, err := statIdentity(path)
		if err != nil {
			// The entry vanished between listing and stat; a later
			// notification re-adds it through the first-seen path.
			e.logger.Debug("skipping unstatable entry", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		st := &fileState{path: path, name: name, offset: size, id: id}
		if e.isPrimary(name) {
			st.rs = reassembly.New()
		}
		files[strings.ToLower(path)] = st
	}

	e.files = files
	e.started = true
	e.logger.Info("watch inventory complete",
		logging.String("dir", e.dir),
		logging.Int("files", len(files)))
	return nil
}

// HandleGrowth processes a change notification for path. Unknown files are
// bootstrapped at their current size without parsing, known files have the
// range between the recorded offset and the current size read and routed.
// The offset advances to the current size in every outcome.
func (e *Engine) HandleGrowth(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	name := filepath.Base(abs)
	if !e.matches(name) {
		return
	}

	size, id, err := statIdentity(abs)
	if err != nil {
		e.logger.Debug("stat failed for notified file", logging.String(logging.FieldFile, name), logging.Error(err))
		return
	}

	key := strings.ToLower(abs)
	st, known := e.files[key]
	if !known {
		st = &fileState{path: abs, name: name, offset: size, id: id}
		if e.isPrimary(name) {
			st.rs = reassembly.New()
		}
		e.files[key] = st
		e.logger.Info("tracking new file",
			logging.String(logging.FieldFile, name),
			logging.Int64(logging.FieldOffset, size))
		return
	}

	if id != st.id {
		// Same name, different file: the old incarnation ended, so the
		// event it still held is complete and can be released.
		if st.rs != nil {
			if ev, ok := st.rs.Flush(); ok {
				e.emit(ev)
			}
			st.rs = reassembly.New()
		}
		st.id = id
		st.offset = 0
		e.logger.Info("file rotated", logging.String(logging.FieldFile, name))
	}

	if size <= st.offset {
		return
	}

	if e.paused {
		st.offset = size
		return
	}

	from := st.offset
	lines, err := readRange(abs, from, size)
	st.offset = size
	if err != nil {
		logging.WarnWithContext(e.logger, "failed to read file growth", "tail_read_failed",
			logging.String(logging.FieldFile, name),
			logging.String(logging.FieldErrorHint, "file may have been removed or become unreadable"),
			logging.String(logging.FieldImpact, "lines in the unread range are skipped"),
			logging.Error(err))
		return
	}

	if st.rs != nil {
		for _, line := range lines {
			if ev, ok := st.rs.ConsumeLine(line); ok {
				e.emit(ev)
			}
		}
	} else {
		for _, line := range lines {
			e.emit(e.genericEvent(st.name, line))
		}
	}
	e.logger.Debug("growth handled",
		logging.String(logging.FieldFile, name),
		logging.Int64("from", from),
		logging.Int64(logging.FieldOffset, size),
		logging.Int("lines", len(lines)))
}

// Pause suspends parsing. Offsets keep advancing, so content written while
// paused is skipped for good.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume re-enables parsing from each file's current offset.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether parsing is suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Stop flushes the pending event of every reassembled file, then discards
// all tracking state. A later Start performs a fresh inventory. Safe to
// call on an engine that never started.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	for _, st := range e.files {
		if st.rs == nil {
			continue
		}
		if ev, ok := st.rs.Flush(); ok {
			e.emit(ev)
		}
	}
	e.files = nil
	e.started = false
	e.paused = false
}

// Offsets returns the current read offset per tracked file, keyed by the
// file's display name.
func (e *Engine) Offsets() map[string]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int64, len(e.files))
	for _, st := range e.files {
		out[st.name] = st.offset
	}
	return out
}

func (e *Engine) matches(name string) bool {
	ok, err := doublestar.Match(e.pattern, strings.ToLower(name))
	return err == nil && ok
}

func (e *Engine) isPrimary(name string) bool {
	return strings.ToLower(name) == e.primary
}

// genericEvent wraps one line from a secondary log file. The source file is
// recorded in the metadata raw text since these files carry no structured
// header.
func (e *Engine) genericEvent(name, line string) logevent.Event {
	return logevent.Event{
		Identifier: logevent.GenericIdentifier,
		Timestamp:  e.now().Format(logevent.TimestampLayout),
		Scope:      logevent.ScopeOther,
		Severity:   logevent.SeverityOther,
		Message:    line,
		Metadata:   &logevent.Metadata{Raw: name},
		RawLines:   []string{line},
	}
}
