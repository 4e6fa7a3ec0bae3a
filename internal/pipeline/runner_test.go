package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"darkroom/internal/classify"
	"darkroom/internal/config"
	"darkroom/internal/decode"
	"darkroom/internal/errsink"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/migrate"
	"darkroom/internal/photo"
	"darkroom/internal/pipeline"
	"darkroom/internal/session"
	"darkroom/internal/testsupport"
)

// stubDecoder serves canned payloads by path. Unknown paths read as plain
// photos with no marker.
type stubDecoder struct {
	payloads map[string]string
	errs     map[string]error
}

func (d stubDecoder) Decode(_ context.Context, path string) (string, error) {
	if err := d.errs[path]; err != nil {
		return "", err
	}
	if payload, ok := d.payloads[path]; ok {
		return payload, nil
	}
	return "", decode.ErrNoMarker
}

type fixture struct {
	cfg    *config.Config
	store  *journal.Store
	runner *pipeline.Runner
}

func newFixture(t *testing.T, cfg *config.Config, dec decode.Decoder) *fixture {
	t.Helper()
	store := testsupport.MustOpenJournal(t, cfg)
	logger := logging.NewNop()

	classifier := classify.NewWithDependencies(cfg, dec, photo.CaptureTime, logger)
	assembler := session.NewAssembler(cfg.Session.MaxPhotos, cfg.Window())
	sink := errsink.New(cfg, store, logger)
	migrator := migrate.New(cfg, store, sink, logger)

	return &fixture{
		cfg:    cfg,
		store:  store,
		runner: pipeline.New(cfg, classifier, assembler, migrator, sink, logger),
	}
}

// feed writes the named photos a minute apart, ending at the given time, and
// returns a closed event channel delivering them in order.
func (f *fixture) feed(t *testing.T, end time.Time, names ...string) <-chan photo.Event {
	t.Helper()
	events := make(chan photo.Event, len(names))
	for i, name := range names {
		path := filepath.Join(f.cfg.Paths.WatchDir, name)
		ts := end.Add(-time.Duration(len(names)-1-i) * time.Minute)
		testsupport.WritePhoto(t, path, ts)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		events <- photo.Event{Path: path, Size: info.Size(), ModTime: info.ModTime()}
	}
	close(events)
	return events
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.cfg.Paths.WatchDir, name)
}

func TestRunAssemblesAndMigratesSession(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t)
	dec := stubDecoder{payloads: map[string]string{
		filepath.Join(cfg.Paths.WatchDir, "qr.jpg"): "PATIENT_ID:P-5",
	}}
	f := newFixture(t, cfg, dec)

	events := f.feed(t, end, "a.jpg", "b.jpg", "qr.jpg")
	if err := f.runner.Run(context.Background(), events); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	destDir := filepath.Join(cfg.Paths.WatchDir, "P-5", "2024.06.01")
	for _, name := range []string{"a.jpg", "b.jpg", "qr.jpg"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Errorf("%s not migrated: %v", name, err)
		}
	}

	recent, err := f.store.RecentSessions(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != journal.StatusCommitted {
		t.Fatalf("journal = %+v, want one committed session", recent)
	}
	if recent[0].PatientID != "P-5" {
		t.Errorf("patient id = %q, want P-5", recent[0].PatientID)
	}
	if recent[0].PhotoCount != 2 {
		t.Errorf("photo count = %d, want 2", recent[0].PhotoCount)
	}
}

func TestRunQuarantinesUnreadableAndContinues(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t)
	dec := stubDecoder{
		payloads: map[string]string{
			filepath.Join(cfg.Paths.WatchDir, "qr.jpg"): "PATIENT_ID:P-5",
		},
		errs: map[string]error{
			filepath.Join(cfg.Paths.WatchDir, "corrupt.jpg"): errors.New("truncated jpeg"),
		},
	}
	f := newFixture(t, cfg, dec)

	events := f.feed(t, end, "corrupt.jpg", "good.jpg", "qr.jpg")
	if err := f.runner.Run(context.Background(), events); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), "corrupt.jpg")); err != nil {
		t.Errorf("unreadable photo not quarantined: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchDir, "P-5", "2024.06.01", "good.jpg")); err != nil {
		t.Errorf("readable photo not migrated: %v", err)
	}
}

func TestRunRejectsOverCapacitySession(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t, testsupport.WithMaxPhotos(1))
	dec := stubDecoder{payloads: map[string]string{
		filepath.Join(cfg.Paths.WatchDir, "qr.jpg"): "PATIENT_ID:P-5",
	}}
	f := newFixture(t, cfg, dec)

	events := f.feed(t, end, "a.jpg", "b.jpg", "qr.jpg")
	if err := f.runner.Run(context.Background(), events); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range []string{"a.jpg", "b.jpg", "qr.jpg"} {
		if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), name)); err != nil {
			t.Errorf("%s not quarantined: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchDir, "P-5")); !errors.Is(err, os.ErrNotExist) {
		t.Error("patient folder should not exist for a rejected session")
	}
}

func TestRunStopsAfterFailedSessionWhenConfigured(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.StopOnError = true
	dec := stubDecoder{payloads: map[string]string{
		filepath.Join(cfg.Paths.WatchDir, "qr.jpg"): "PATIENT_ID:P-5",
	}}
	f := newFixture(t, cfg, dec)

	// A plain file where the backup folder belongs makes every backup fail,
	// so the session fails without touching the watch folder.
	if err := os.RemoveAll(cfg.BackupDir()); err != nil {
		t.Fatalf("remove backup folder: %v", err)
	}
	if err := os.WriteFile(cfg.BackupDir(), []byte("in the way"), 0o644); err != nil {
		t.Fatalf("plant blocking file: %v", err)
	}

	events := f.feed(t, end, "a.jpg", "qr.jpg", "later.jpg")
	err := f.runner.Run(context.Background(), events)
	if !pipeline.IsStopped(err) {
		t.Fatalf("error = %v, want deliberate stop", err)
	}

	for _, name := range []string{"a.jpg", "qr.jpg", "later.jpg"} {
		if _, statErr := os.Stat(f.path(name)); statErr != nil {
			t.Errorf("%s should stay in the watch folder: %v", name, statErr)
		}
	}
}

func TestRunStopOnErrorContinuesPastUnreadable(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.StopOnError = true
	dec := stubDecoder{
		payloads: map[string]string{
			filepath.Join(cfg.Paths.WatchDir, "qr.jpg"): "PATIENT_ID:P-5",
		},
		errs: map[string]error{
			filepath.Join(cfg.Paths.WatchDir, "corrupt.jpg"): errors.New("truncated jpeg"),
		},
	}
	f := newFixture(t, cfg, dec)

	events := f.feed(t, end, "corrupt.jpg", "good.jpg", "qr.jpg")
	if err := f.runner.Run(context.Background(), events); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), "corrupt.jpg")); err != nil {
		t.Errorf("unreadable photo not quarantined: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchDir, "P-5", "2024.06.01", "good.jpg")); err != nil {
		t.Errorf("session should still migrate after an unreadable photo: %v", err)
	}
}

func TestRunSinkFailureIsFatal(t *testing.T) {
	end := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	cfg := testsupport.NewConfig(t)
	dec := stubDecoder{errs: map[string]error{
		filepath.Join(cfg.Paths.WatchDir, "ghost.jpg"): errors.New("unreadable"),
	}}
	f := newFixture(t, cfg, dec)

	events := make(chan photo.Event, 1)
	// The event references a file that does not exist, so quarantining it
	// cannot succeed.
	events <- photo.Event{Path: f.path("ghost.jpg"), ModTime: end}
	close(events)

	err := f.runner.Run(context.Background(), events)
	if !errors.Is(err, errsink.ErrSinkFailure) {
		t.Fatalf("error = %v, want ErrSinkFailure", err)
	}
}
