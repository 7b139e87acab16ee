package testsupport

import (
	"testing"

	"bobbin/internal/archive"
	"bobbin/internal/config"
)

// MustOpenStore opens an archive.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()

	store, err := archive.Open(cfg)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
