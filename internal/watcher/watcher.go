package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/photo"
)

// pending tracks one file observed but not yet stable. A file is emitted
// once its size and mtime have held still for the full settle window.
type pending struct {
	size        int64
	modTime     time.Time
	stableSince time.Time
}

// Watcher observes the top level of the watch folder and emits one Event per
// file after the file has stopped changing. Reserved folders and hidden
// names never produce events.
type Watcher struct {
	cfg    *config.Config
	logger *slog.Logger

	formats map[string]struct{}
	events  chan photo.Event
	now     func() time.Time
}

func New(cfg *config.Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		formats: cfg.FormatSet(),
		events:  make(chan photo.Event, 64),
		now:     time.Now,
	}
}

// Events is the stream of stabilized files. The channel closes when Run
// returns.
func (w *Watcher) Events() <-chan photo.Event {
	return w.events
}

// Run blocks until the context is canceled. It seeds the pending set with a
// startup scan of recent files, then follows filesystem notifications,
// emitting each file once it stabilizes.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Paths.WatchDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Paths.WatchDir, err)
	}

	tracked := make(map[string]*pending)
	w.startupScan(tracked)

	ticker := time.NewTicker(w.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			w.handleFsEvent(tracked, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("filesystem watcher closed")
			}
			w.logger.Warn("filesystem watcher error", logging.Error(err))

		case <-ticker.C:
			for _, ev := range w.poll(tracked) {
				select {
				case w.events <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (w *Watcher) handleFsEvent(tracked map[string]*pending, event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		delete(tracked, event.Name)
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.eligible(event.Name) {
		return
	}
	w.track(tracked, event.Name)
}

// track stats the file and records a fresh stability observation. An
// existing entry is reset: any change restarts the settle window.
func (w *Watcher) track(tracked map[string]*pending, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	tracked[path] = &pending{
		size:        info.Size(),
		modTime:     info.ModTime(),
		stableSince: w.now(),
	}
}

// poll re-stats every tracked file and returns those that finished the
// settle window, oldest modification first with ties broken by name.
func (w *Watcher) poll(tracked map[string]*pending) []photo.Event {
	var ready []photo.Event
	for path, p := range tracked {
		info, err := os.Stat(path)
		if err != nil {
			// Vanished files were moved or deleted out from under us.
			delete(tracked, path)
			continue
		}
		if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
			p.size = info.Size()
			p.modTime = info.ModTime()
			p.stableSince = w.now()
			continue
		}
		if w.now().Sub(p.stableSince) < w.cfg.SettleWindow() {
			continue
		}
		ready = append(ready, photo.Event{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		delete(tracked, path)
	}

	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].ModTime.Equal(ready[j].ModTime) {
			return ready[i].ModTime.Before(ready[j].ModTime)
		}
		return ready[i].Path < ready[j].Path
	})
	return ready
}

// startupScan seeds the pending set with files already sitting in the watch
// folder, so photos taken while the daemon was down are not stranded. Only
// files captured within the startup scan window are picked up; older
// leftovers stay put for an operator to review.
func (w *Watcher) startupScan(tracked map[string]*pending) {
	window := w.cfg.StartupScanWindow()
	if window <= 0 {
		return
	}
	entries, err := os.ReadDir(w.cfg.Paths.WatchDir)
	if err != nil {
		w.logger.Warn("startup scan failed", logging.Error(err))
		return
	}
	cutoff := w.now().Add(-window)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Paths.WatchDir, entry.Name())
		if !w.eligible(path) {
			continue
		}
		captured, _, err := photo.CaptureTime(path)
		if err != nil || captured.Before(cutoff) {
			continue
		}
		w.track(tracked, path)
	}
	if len(tracked) > 0 {
		w.logger.Info("startup scan queued files", logging.Int("count", len(tracked)))
	}
}

// eligible filters to supported photo extensions at the top level of the
// watch folder. Names starting with "_" or "." are reserved for the backup,
// error and done folders and for editor temp files.
func (w *Watcher) eligible(path string) bool {
	if filepath.Dir(path) != w.cfg.Paths.WatchDir {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := w.formats[strings.ToLower(filepath.Ext(name))]
	return ok
}
