package testsupport

import (
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/journal"
)

// MustOpenJournal opens a journal backed by the config's log directory and
// registers cleanup so the database is closed when the test finishes.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	j, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("close journal: %v", err)
		}
	})
	return j
}
