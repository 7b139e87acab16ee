package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bobbin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watch directory exists and the config passes validation.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "watch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArchivePath = filepath.Join(base, "logs", "events.db")
	cfgVal.Paths.SocketPath = filepath.Join(base, "logs", "bobbin.sock")
	cfgVal.Paths.LockPath = filepath.Join(base, "logs", "bobbin.lock")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return builder.cfg
}

// WithPrimaryLog overrides the primary log file name.
func WithPrimaryLog(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.PrimaryLog = name
	}
}

// WithFilePattern overrides the watched file name pattern.
func WithFilePattern(pattern string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.FilePattern = pattern
	}
}

// WithHubCapacity overrides the in-memory event buffer size.
func WithHubCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.HubCapacity = capacity
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
