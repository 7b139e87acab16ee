package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bobbin/internal/archive"
	"bobbin/internal/config"
	"bobbin/internal/daemon"
	"bobbin/internal/hub"
	"bobbin/internal/logevent"
	"bobbin/internal/logging"
	"bobbin/internal/testsupport"
)

// startDaemon boots a daemon over a fresh config whose primary log already
// exists empty, so appended lines are parsed rather than skipped as backlog.
func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	logPath := filepath.Join(cfg.Paths.WatchDir, cfg.Ingest.PrimaryLog)
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create primary log: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, cfg, logPath
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fetchEvents(t *testing.T, d *daemon.Daemon, since uint64) []hub.Entry {
	t.Helper()
	entries, _, err := d.Events(context.Background(), since, 100, false)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	return entries
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}

func TestDaemonStartStop(t *testing.T) {
	d, cfg, _ := startDaemon(t)

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Directory != cfg.Paths.WatchDir {
		t.Fatalf("Directory = %q, want %q", status.Directory, cfg.Paths.WatchDir)
	}
	if status.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected a start time")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("PID = %d, want %d", status.PID, os.Getpid())
	}
	if status.Forwarding {
		t.Fatal("forwarding should be off by default")
	}
	if _, ok := status.Offsets[cfg.Ingest.PrimaryLog]; !ok {
		t.Fatalf("expected %s in offsets, got %v", cfg.Ingest.PrimaryLog, status.Offsets)
	}

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	// Stopping twice is a no-op.
	d.Stop()
}

func TestSecondInstanceBlocked(t *testing.T) {
	d, cfg, _ := startDaemon(t)

	other, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = other.Start(context.Background())
	if err == nil {
		other.Stop()
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already watching") {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Stop()
	if err := other.Start(context.Background()); err != nil {
		t.Fatalf("start after lock release: %v", err)
	}
	other.Stop()
}

func TestDaemonIngestsAppendedLines(t *testing.T) {
	d, _, logPath := startDaemon(t)

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "db connection established"),
		testsupport.MainLine("WCCOAui", "WARNING", "late frame"),
	)

	var entries []hub.Entry
	waitFor(t, 3*time.Second, "first reassembled event", func() bool {
		entries = fetchEvents(t, d, 0)
		return len(entries) >= 1
	})

	ev := entries[0].Event
	if ev.Identifier != "WCCILpmon" {
		t.Fatalf("Identifier = %q, want WCCILpmon", ev.Identifier)
	}
	if ev.Severity != logevent.SeverityInfo {
		t.Fatalf("Severity = %q, want %q", ev.Severity, logevent.SeverityInfo)
	}
	if ev.Scope != "SYS" {
		t.Fatalf("Scope = %q, want SYS", ev.Scope)
	}
	if ev.Message != "db connection established" {
		t.Fatalf("Message = %q", ev.Message)
	}
	if entries[0].Seq == 0 {
		t.Fatal("expected assigned sequence numbers to start at 1")
	}

	if count := d.Status().EventCount; count == 0 {
		t.Fatalf("EventCount = %d, want > 0", count)
	}
}

func TestSecondaryFilesProduceGenericEvents(t *testing.T) {
	d, cfg, _ := startDaemon(t, testsupport.WithPrimaryLog("controller.log"))

	// A file appearing after start is bootstrapped at its current size;
	// creating it empty keeps later appends inside the parsed range.
	secondary := filepath.Join(cfg.Paths.WatchDir, "PVSS_II.log")
	if err := os.WriteFile(secondary, nil, 0o644); err != nil {
		t.Fatalf("create secondary log: %v", err)
	}
	waitFor(t, 3*time.Second, "secondary file to be tracked", func() bool {
		offset, ok := d.Status().Offsets["PVSS_II.log"]
		return ok && offset == 0
	})

	testsupport.AppendLines(t, secondary, "valve opened")

	var entries []hub.Entry
	waitFor(t, 3*time.Second, "generic event", func() bool {
		entries = fetchEvents(t, d, 0)
		return len(entries) >= 1
	})

	ev := entries[0].Event
	if ev.Identifier != logevent.GenericIdentifier {
		t.Fatalf("Identifier = %q, want %q", ev.Identifier, logevent.GenericIdentifier)
	}
	if ev.Severity != logevent.SeverityOther || ev.Scope != logevent.ScopeOther {
		t.Fatalf("severity/scope = %q/%q, want OTHER/OTHER", ev.Severity, ev.Scope)
	}
	if ev.Message != "valve opened" {
		t.Fatalf("Message = %q", ev.Message)
	}
	if ev.Metadata == nil || ev.Metadata.Raw != "PVSS_II.log" {
		t.Fatalf("Metadata = %+v, want source file in raw", ev.Metadata)
	}
	if ev.Timestamp == "" {
		t.Fatal("generic event carries no timestamp")
	}
}

func TestFilePatternNarrowsTracking(t *testing.T) {
	d, cfg, logPath := startDaemon(t, testsupport.WithFilePattern("PVSS*.log"))

	ignored := filepath.Join(cfg.Paths.WatchDir, "other.log")
	testsupport.AppendLines(t, ignored, "should never surface")

	// The primary append acts as a barrier: notifications arrive in write
	// order, so once its event is visible the ignored file had its turn.
	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "matching file"),
		testsupport.MainLine("WCCILpmon", "INFO", "trailing"),
	)

	var entries []hub.Entry
	waitFor(t, 3*time.Second, "primary event", func() bool {
		entries = fetchEvents(t, d, 0)
		return len(entries) >= 1
	})

	if _, ok := d.Status().Offsets["other.log"]; ok {
		t.Fatal("non-matching file must not be tracked")
	}
	for _, entry := range entries {
		if strings.Contains(entry.Event.Message, "should never surface") {
			t.Fatal("non-matching file produced an event")
		}
	}
}

func TestEventCountOutlivesRingEviction(t *testing.T) {
	d, _, logPath := startDaemon(t, testsupport.WithHubCapacity(2))

	// Four main lines complete three events; the ring keeps only two.
	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "one"),
		testsupport.MainLine("WCCILpmon", "INFO", "two"),
		testsupport.MainLine("WCCILpmon", "INFO", "three"),
		testsupport.MainLine("WCCILpmon", "INFO", "four"),
	)

	waitFor(t, 3*time.Second, "all completed events to be counted", func() bool {
		return d.Status().EventCount == 3
	})

	entries := fetchEvents(t, d, 0)
	if len(entries) != 2 {
		t.Fatalf("buffered entries = %d, want 2", len(entries))
	}
	if entries[0].Seq != 2 || entries[1].Seq != 3 {
		t.Fatalf("buffered sequences = %d, %d; want 2, 3", entries[0].Seq, entries[1].Seq)
	}
	if entries[0].Event.Message != "two" || entries[1].Event.Message != "three" {
		t.Fatalf("buffered messages = %q, %q", entries[0].Event.Message, entries[1].Event.Message)
	}
}

func TestPauseSkipsGrowthPermanently(t *testing.T) {
	d, cfg, logPath := startDaemon(t)

	if err := d.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !d.Status().Paused {
		t.Fatal("expected paused status")
	}

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "SEVERE", "missed while paused"),
	)
	waitFor(t, 3*time.Second, "offset to advance past paused growth", func() bool {
		return d.Status().Offsets[cfg.Ingest.PrimaryLog] == fileSize(t, logPath)
	})

	if err := d.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if d.Status().Paused {
		t.Fatal("expected resumed status")
	}

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "seen after resume"),
		testsupport.MainLine("WCCILpmon", "INFO", "trailing"),
	)

	var entries []hub.Entry
	waitFor(t, 3*time.Second, "post-resume event", func() bool {
		entries = fetchEvents(t, d, 0)
		return len(entries) >= 1
	})
	for _, entry := range entries {
		if strings.Contains(entry.Event.Message, "missed while paused") {
			t.Fatal("paused growth must never surface as an event")
		}
	}
	if entries[0].Event.Message != "seen after resume" {
		t.Fatalf("Message = %q, want %q", entries[0].Event.Message, "seen after resume")
	}
}

func TestStopFlushesPendingEventToArchive(t *testing.T) {
	d, cfg, logPath := startDaemon(t)

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "flush me"),
	)
	waitFor(t, 3*time.Second, "line to be consumed", func() bool {
		return d.Status().Offsets[cfg.Ingest.PrimaryLog] == fileSize(t, logPath)
	})
	if entries := fetchEvents(t, d, 0); len(entries) != 0 {
		t.Fatalf("event emitted before flush: %v", entries)
	}

	d.Stop()

	store := testsupport.MustOpenStore(t, cfg)
	stored, err := store.RecentEvents(context.Background(), archive.Query{})
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("archived events = %d, want 1", len(stored))
	}
	if stored[0].Event.Message != "flush me" {
		t.Fatalf("Message = %q, want %q", stored[0].Event.Message, "flush me")
	}
}

func TestRestartSkipsOfflineGrowth(t *testing.T) {
	d, cfg, logPath := startDaemon(t)

	firstSession := d.Status().SessionID
	d.Stop()

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "SEVERE", "written while offline"),
	)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	status := d.Status()
	if status.SessionID == firstSession {
		t.Fatal("restart must begin a fresh session")
	}
	if status.Offsets[cfg.Ingest.PrimaryLog] != fileSize(t, logPath) {
		t.Fatalf("restart inventory offset = %d, want file size %d",
			status.Offsets[cfg.Ingest.PrimaryLog], fileSize(t, logPath))
	}

	testsupport.AppendLines(t, logPath,
		testsupport.MainLine("WCCILpmon", "INFO", "fresh run"),
		testsupport.MainLine("WCCILpmon", "INFO", "trailing"),
	)

	var entries []hub.Entry
	waitFor(t, 3*time.Second, "post-restart event", func() bool {
		entries = fetchEvents(t, d, 0)
		return len(entries) >= 1
	})
	if entries[0].Event.Message != "fresh run" {
		t.Fatalf("Message = %q, want %q", entries[0].Event.Message, "fresh run")
	}
	for _, entry := range entries {
		if strings.Contains(entry.Event.Message, "written while offline") {
			t.Fatal("offline growth must be skipped on restart")
		}
	}
}

func TestControlsRequireRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if err := d.Pause(); err == nil {
		t.Fatal("Pause before Start must fail")
	}
	if err := d.Resume(); err == nil {
		t.Fatal("Resume before Start must fail")
	}
	if _, _, err := d.Events(context.Background(), 0, 10, false); err == nil {
		t.Fatal("Events before Start must fail")
	}
}

func TestShutdownRequestSignalsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	select {
	case <-d.ShutdownRequested():
		t.Fatal("shutdown channel closed prematurely")
	default:
	}

	d.RequestShutdown()
	d.RequestShutdown()

	select {
	case <-d.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("shutdown channel never closed")
	}
}
