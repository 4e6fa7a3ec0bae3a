package errsink_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"darkroom/internal/errsink"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/photo"
	"darkroom/internal/session"
	"darkroom/internal/testsupport"
)

func TestQuarantineFileMovesAndJournals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	sink := errsink.New(cfg, store, logging.NewNop())
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.WatchDir, "broken.jpg")
	testsupport.WritePhoto(t, src, time.Now())

	if err := sink.QuarantineFile(ctx, src, errsink.ReasonDecodeFailure, "bad stream", ""); err != nil {
		t.Fatalf("QuarantineFile failed: %v", err)
	}

	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source still present after quarantine: %v", err)
	}
	dst := filepath.Join(cfg.ErrorDir(), "broken.jpg")
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}

	count, err := store.ErrorCountForFile(ctx, src)
	if err != nil {
		t.Fatalf("ErrorCountForFile failed: %v", err)
	}
	if count != 1 {
		t.Errorf("journaled error count = %d, want 1", count)
	}
}

func TestQuarantineFileKeepsEarlierFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sink := errsink.New(cfg, nil, logging.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		src := filepath.Join(cfg.Paths.WatchDir, "dup.jpg")
		testsupport.WritePhoto(t, src, time.Now())
		if err := sink.QuarantineFile(ctx, src, errsink.ReasonDecodeFailure, "", ""); err != nil {
			t.Fatalf("QuarantineFile %d failed: %v", i, err)
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), "dup.jpg")); err != nil {
		t.Errorf("first quarantined file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), "dup_1.jpg")); err != nil {
		t.Errorf("renamed second file missing: %v", err)
	}
}

func TestQuarantineFileMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sink := errsink.New(cfg, nil, logging.NewNop())

	err := sink.QuarantineFile(context.Background(),
		filepath.Join(cfg.Paths.WatchDir, "gone.jpg"),
		errsink.ReasonDecodeFailure, "", "")
	if !errors.Is(err, errsink.ErrSinkFailure) {
		t.Fatalf("error = %v, want ErrSinkFailure", err)
	}
}

func TestQuarantineSessionMovesAllFilesAndWritesReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	sink := errsink.New(cfg, store, logging.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 3, 10, 14, 30, 0, 0, time.Local)
	var selected []photo.Classified
	for i, name := range []string{"a.jpg", "b.jpg"} {
		path := filepath.Join(cfg.Paths.WatchDir, name)
		testsupport.WritePhoto(t, path, base.Add(time.Duration(i)*time.Minute))
		selected = append(selected, photo.Classified{
			Event:       photo.Event{Path: path},
			Class:       photo.ClassOrdinary,
			CaptureTime: base.Add(time.Duration(i) * time.Minute),
		})
	}
	triggerPath := filepath.Join(cfg.Paths.WatchDir, "qr.jpg")
	testsupport.WritePhoto(t, triggerPath, base.Add(5*time.Minute))
	rejection := &session.Rejection{
		Trigger: photo.Classified{
			Event:       photo.Event{Path: triggerPath},
			Class:       photo.ClassTrigger,
			PatientID:   "P-77",
			CaptureTime: base.Add(5 * time.Minute),
		},
		Selected: selected,
		Limit:    1,
	}

	if err := sink.QuarantineSession(ctx, rejection); err != nil {
		t.Fatalf("QuarantineSession failed: %v", err)
	}

	for _, name := range []string{"a.jpg", "b.jpg", "qr.jpg"} {
		if _, err := os.Stat(filepath.Join(cfg.ErrorDir(), name)); err != nil {
			t.Errorf("%s missing from error folder: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.WatchDir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still in watch folder", name)
		}
	}

	report := testsupport.ReadFile(t, filepath.Join(cfg.ErrorDir(), "error_20240310_143500.txt"))
	for _, want := range []string{"patient: P-77", "capacity_violation", "a.jpg", "b.jpg"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestQuarantineSessionJournalsRejectedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	sink := errsink.New(cfg, store, logging.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 3, 10, 14, 30, 0, 0, time.Local)
	memberPath := filepath.Join(cfg.Paths.WatchDir, "a.jpg")
	triggerPath := filepath.Join(cfg.Paths.WatchDir, "qr.jpg")
	testsupport.WritePhoto(t, memberPath, base)
	testsupport.WritePhoto(t, triggerPath, base.Add(time.Minute))
	rejection := &session.Rejection{
		Trigger: photo.Classified{
			Event:       photo.Event{Path: triggerPath},
			Class:       photo.ClassTrigger,
			PatientID:   "P-77",
			CaptureTime: base.Add(time.Minute),
		},
		Selected: []photo.Classified{{
			Event:       photo.Event{Path: memberPath},
			Class:       photo.ClassOrdinary,
			CaptureTime: base,
		}},
		Limit: 1,
	}

	if err := sink.QuarantineSession(ctx, rejection); err != nil {
		t.Fatalf("QuarantineSession failed: %v", err)
	}

	recent, err := store.RecentSessions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("session rows = %d, want 1", len(recent))
	}
	rec := recent[0]
	if rec.Status != journal.StatusRejected {
		t.Errorf("status = %q, want %q", rec.Status, journal.StatusRejected)
	}
	if rec.SessionID != "20240310_143100" {
		t.Errorf("session id = %q, want 20240310_143100", rec.SessionID)
	}
	if rec.PatientID != "P-77" {
		t.Errorf("patient id = %q, want P-77", rec.PatientID)
	}
	if rec.PhotoCount != 1 {
		t.Errorf("photo count = %d, want 1", rec.PhotoCount)
	}
	if !strings.Contains(rec.ErrorMessage, "limit 1") {
		t.Errorf("error message = %q, want the capacity detail", rec.ErrorMessage)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Rejected != 1 {
		t.Errorf("summary.Rejected = %d, want 1", summary.Rejected)
	}
}

func TestRecordFailureKeepsFileInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	sink := errsink.New(cfg, store, logging.NewNop())
	ctx := context.Background()

	src := filepath.Join(cfg.Paths.WatchDir, "stays.jpg")
	testsupport.WritePhoto(t, src, time.Now())

	sink.RecordFailure(ctx, src, errsink.ReasonMigrationFailure, "sibling move failed", "20240101_000000")

	if _, err := os.Stat(src); err != nil {
		t.Errorf("file should remain in place: %v", err)
	}
	count, err := store.ErrorCountForFile(ctx, src)
	if err != nil {
		t.Fatalf("ErrorCountForFile failed: %v", err)
	}
	if count != 1 {
		t.Errorf("journaled error count = %d, want 1", count)
	}
}
