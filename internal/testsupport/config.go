package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"darkroom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The watch folder exists; reserved folders are created lazily by the code
// under test via EnsureDirectories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchDir = filepath.Join(base, "incoming")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxPhotos overrides the per-session photo bound.
func WithMaxPhotos(n int) ConfigOption {
	return func(c *config.Config) {
		c.Session.MaxPhotos = n
	}
}

// WithWindowMinutes overrides the look-back window.
func WithWindowMinutes(n int) ConfigOption {
	return func(c *config.Config) {
		c.Session.WindowMinutes = n
	}
}

// WithFastWatcher shortens stabilization timing so watcher tests finish
// quickly.
func WithFastWatcher() ConfigOption {
	return func(c *config.Config) {
		c.Watcher.SettleSeconds = 0
		c.Watcher.PollMillis = 25
	}
}
