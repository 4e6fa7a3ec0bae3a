package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"darkroom/internal/classify"
	"darkroom/internal/config"
	"darkroom/internal/errsink"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/migrate"
	"darkroom/internal/pipeline"
	"darkroom/internal/session"
	"darkroom/internal/watcher"
)

// Daemon owns the watcher and pipeline for one watch folder and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *journal.Store

	lockPath string
	lock     *flock.Flock

	watcher *watcher.Watcher
	runner  *pipeline.Runner
}

// New wires the full processing chain. The watch folder must already exist;
// reserved folders are created on demand.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, journal store and logger")
	}
	if info, err := os.Stat(cfg.Paths.WatchDir); err != nil {
		return nil, fmt.Errorf("watch folder: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch folder %s is not a directory", cfg.Paths.WatchDir)
	}

	sink := errsink.New(cfg, store, logger)
	classifier := classify.New(cfg, logger)
	assembler := session.NewAssembler(cfg.Session.MaxPhotos, cfg.Window())
	migrator := migrate.New(cfg, store, sink, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "darkroomd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		watcher:  watcher.New(cfg, logger),
		runner:   pipeline.New(cfg, classifier, assembler, migrator, sink, logger),
	}, nil
}

// Run acquires the instance lock and processes photos until the context is
// canceled or the pipeline reports a terminal error.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another darkroom daemon instance is already running")
	}
	defer func() {
		if unlockErr := d.lock.Unlock(); unlockErr != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(unlockErr))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.logger.Info("darkroom daemon started",
		logging.String("watch", d.cfg.Paths.WatchDir),
		logging.String("lock", d.lockPath),
		logging.Int("max_photos", d.cfg.Session.MaxPhotos),
		logging.Duration("window", d.cfg.Window()))

	watchErr := make(chan error, 1)
	go func() { watchErr <- d.watcher.Run(ctx) }()

	runErr := d.runner.Run(ctx, d.watcher.Events())
	cancel()

	if werr := <-watchErr; werr != nil && runErr == nil {
		runErr = werr
	}

	d.logger.Info("darkroom daemon stopped")
	return runErr
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
