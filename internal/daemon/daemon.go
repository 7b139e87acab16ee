package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"bobbin/internal/archive"
	"bobbin/internal/config"
	"bobbin/internal/forward"
	"bobbin/internal/hub"
	"bobbin/internal/logging"
	"bobbin/internal/tailer"
	"bobbin/internal/watcher"
)

// Daemon owns one watch session over a runtime log directory and enforces
// single-instance execution per lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	store   *archive.Store
	events  *hub.Hub
	engine  *tailer.Engine
	fw      *forward.Forwarder
	session archive.Session

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	Paused      bool
	Directory   string
	SessionID   string
	StartedAt   time.Time
	PID         int
	EventCount  uint64
	Offsets     map[string]int64
	ArchivePath string
	LockPath    string
	Forwarding  bool
}

// New constructs a daemon for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: cfg.Paths.LockPath,
		lock:     flock.New(cfg.Paths.LockPath),
		shutdown: make(chan struct{}),
	}, nil
}

// Start acquires the instance lock, opens the archive, takes the watch
// inventory, and launches the notification loop. Content present in watched
// files at this point is recorded by size only and never parsed.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bobbin instance is already watching")
	}

	store, err := archive.Open(d.cfg)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("open archive: %w", err)
	}

	session, err := store.BeginSession(ctx, d.cfg.Paths.WatchDir)
	if err != nil {
		store.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("begin session: %w", err)
	}

	events := hub.New(d.cfg.Ingest.HubCapacity)
	events.AddSink(archive.NewSink(store, session.ID,
		logging.NewComponentLogger(d.logger, "archive")))

	var fw *forward.Forwarder
	if d.cfg.Forward.Enabled {
		fw, err = forward.New(d.cfg, logging.NewComponentLogger(d.logger, "forward"))
		if err != nil {
			// Forwarding is best effort; ingestion proceeds without it.
			logging.WarnWithContext(d.logger, "kafka forwarding unavailable", "forward_connect_failed",
				logging.String(logging.FieldErrorHint, "check broker addresses in the forward section"),
				logging.String(logging.FieldImpact, "events are archived locally but not forwarded"),
				logging.Error(err))
			fw = nil
		} else {
			events.AddSink(fw)
		}
	}

	engine := tailer.New(tailer.Options{
		Dir:        d.cfg.Paths.WatchDir,
		PrimaryLog: d.cfg.Ingest.PrimaryLog,
		Pattern:    d.cfg.Ingest.FilePattern,
		Emit:       events.Publish,
		Logger:     logging.NewComponentLogger(d.logger, "tailer"),
	})

	// The OS watch is registered before the inventory so no growth can slip
	// between the two; notifications for already inventoried content resolve
	// as no-ops once the engine compares sizes against offsets.
	w, err := watcher.New(d.cfg.Paths.WatchDir, logging.NewComponentLogger(d.logger, "watcher"))
	if err != nil {
		if fw != nil {
			_ = fw.Close()
		}
		store.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("watch directory: %w", err)
	}

	if err := engine.Start(); err != nil {
		_ = w.Close()
		if fw != nil {
			_ = fw.Close()
		}
		store.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start tail engine: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.store = store
	d.session = session
	d.events = events
	d.engine = engine
	d.fw = fw
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		w.Run(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		for ev := range w.Events() {
			engine.HandleGrowth(ev.Path)
		}
	}()

	d.running.Store(true)
	d.logger.Info("watch session started",
		logging.String("directory", d.cfg.Paths.WatchDir),
		logging.String(logging.FieldSession, session.ID),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop ends the watch session. Pending reassembly state is flushed through
// the sinks before the archive closes, then all tracked offsets are
// discarded so a later Start takes a fresh inventory.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	d.engine.Stop()
	if d.fw != nil {
		if err := d.fw.Close(); err != nil {
			logging.WarnWithContext(d.logger, "failed to close forwarder", "forward_close_failed",
				logging.String(logging.FieldErrorHint, "broker shutdown may be delayed"),
				logging.String(logging.FieldImpact, "none; forwarding already stopped"),
				logging.Error(err))
		}
		d.fw = nil
	}
	if err := d.store.Close(); err != nil {
		logging.WarnWithContext(d.logger, "failed to close archive", "archive_close_failed",
			logging.String(logging.FieldErrorHint, "check the archive file for corruption"),
			logging.String(logging.FieldImpact, "recent events may not be fully persisted"),
			logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release instance lock", "lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
			logging.String(logging.FieldImpact, "a future start may be refused"),
			logging.Error(err))
	}

	d.running.Store(false)
	d.logger.Info("watch session stopped",
		logging.String(logging.FieldSession, d.session.ID))
}

// Pause suspends parsing. Offsets keep advancing past growth that arrives
// while paused, so that content is skipped permanently.
func (d *Daemon) Pause() error {
	if !d.running.Load() {
		return errors.New("not watching")
	}
	d.engine.Pause()
	return nil
}

// Resume re-enables parsing from the current offsets.
func (d *Daemon) Resume() error {
	if !d.running.Load() {
		return errors.New("not watching")
	}
	d.engine.Resume()
	return nil
}

// Events fetches hub entries with sequence numbers above since. With wait
// set it blocks until entries arrive or ctx ends.
func (d *Daemon) Events(ctx context.Context, since uint64, limit int, wait bool) ([]hub.Entry, uint64, error) {
	if !d.running.Load() {
		return nil, since, errors.New("not watching")
	}
	return d.events.Fetch(ctx, since, limit, wait)
}

// RequestShutdown signals the process owner to stop the daemon. Safe to
// call multiple times.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
	})
}

// ShutdownRequested is closed once a shutdown has been requested.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdown
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:     d.running.Load(),
		Directory:   d.cfg.Paths.WatchDir,
		PID:         os.Getpid(),
		ArchivePath: d.cfg.Paths.ArchivePath,
		LockPath:    d.lockPath,
	}
	if !status.Running {
		return status
	}

	status.Paused = d.engine.Paused()
	status.SessionID = d.session.ID
	status.StartedAt = d.session.StartedAt
	status.Offsets = d.engine.Offsets()
	status.Forwarding = d.fw != nil
	_, next := d.events.Tail(1)
	status.EventCount = next
	return status
}
