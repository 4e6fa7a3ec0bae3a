package errsink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/photo"
	"darkroom/internal/session"
)

// Reason labels why a file or session landed in the error folder.
const (
	// ReasonDecodeFailure covers files that could not be opened or decoded
	// as an image at all.
	ReasonDecodeFailure = "decode_failure"
	// ReasonCapacityViolation covers sessions whose selection exceeded the
	// per-session photo bound and were quarantined wholesale.
	ReasonCapacityViolation = "capacity_violation"
	// ReasonMigrationFailure covers files whose move to the patient folder
	// failed after a verified backup.
	ReasonMigrationFailure = "migration_failure"
)

// ErrSinkFailure wraps any failure to quarantine a file. The pipeline treats
// it as fatal: when even the error folder cannot absorb a file, continuing
// would silently drop evidence.
var ErrSinkFailure = errors.New("error sink failure")

// Sink moves problem files into the error folder and records each incident
// in the journal. All paths it produces are collision safe.
type Sink struct {
	cfg    *config.Config
	store  *journal.Store
	logger *slog.Logger
}

func New(cfg *config.Config, store *journal.Store, logger *slog.Logger) *Sink {
	return &Sink{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "errsink"),
	}
}

// Dir returns the quarantine directory.
func (s *Sink) Dir() string {
	return s.cfg.ErrorDir()
}

// QuarantineFile moves one file into the error folder, keeping its base name
// unless an earlier quarantined file already claimed it. The incident is
// journaled whether or not the move succeeds; a failed move returns
// ErrSinkFailure.
func (s *Sink) QuarantineFile(ctx context.Context, path, reason, detail, sessionID string) error {
	if err := s.record(ctx, path, reason, detail, sessionID); err != nil {
		s.logger.Warn("journal write failed",
			logging.String(logging.FieldPhoto, path),
			logging.Error(err))
	}

	if err := os.MkdirAll(s.cfg.ErrorDir(), 0o755); err != nil {
		return fmt.Errorf("%w: create error folder: %v", ErrSinkFailure, err)
	}
	dst, err := fileutil.UniquePath(filepath.Join(s.cfg.ErrorDir(), filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("%w: resolve destination for %s: %v", ErrSinkFailure, path, err)
	}
	if err := fileutil.MoveFile(path, dst); err != nil {
		return fmt.Errorf("%w: move %s: %v", ErrSinkFailure, path, err)
	}

	s.logger.Info("file quarantined",
		logging.String(logging.FieldPhoto, path),
		logging.String(logging.FieldReason, reason),
		logging.String("quarantined_as", dst))
	return nil
}

// QuarantineSession moves every file of a rejected session into the error
// folder and writes a report describing the violation. Files are moved one
// by one; the first failure aborts with ErrSinkFailure.
func (s *Sink) QuarantineSession(ctx context.Context, rejection *session.Rejection) error {
	trigger := rejection.Trigger
	sessionID := trigger.CaptureTime.Format("20060102_150405")
	detail := fmt.Sprintf("selected %d photos, limit %d", len(rejection.Selected), rejection.Limit)

	s.recordRejectedSession(ctx, sessionID, trigger, len(rejection.Selected), detail)

	for _, member := range rejection.Selected {
		if err := s.QuarantineFile(ctx, member.Path, ReasonCapacityViolation, detail, sessionID); err != nil {
			return err
		}
	}
	if err := s.QuarantineFile(ctx, trigger.Path, ReasonCapacityViolation, detail, sessionID); err != nil {
		return err
	}
	return s.WriteSessionReport(sessionID, trigger.PatientID, ReasonCapacityViolation, detail, pathsOf(rejection.Selected))
}

// recordRejectedSession gives a rejected session its own journal row so the
// status and session listings account for it. Journal failures are logged,
// not fatal.
func (s *Sink) recordRejectedSession(ctx context.Context, sessionID string, trigger photo.Classified, photoCount int, detail string) {
	if s.store == nil {
		return
	}
	rec, err := s.store.NewSession(ctx, sessionID, trigger.PatientID, trigger.Path, photoCount)
	if err == nil {
		rec.Status = journal.StatusRejected
		rec.ErrorMessage = detail
		err = s.store.Update(ctx, rec)
	}
	if err != nil {
		s.logger.Warn("journal write failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err))
	}
}

// RecordFailure journals an incident for a file that stays where it is. Used
// for migration members left in place after a sibling's move failed.
func (s *Sink) RecordFailure(ctx context.Context, path, reason, detail, sessionID string) {
	if err := s.record(ctx, path, reason, detail, sessionID); err != nil {
		s.logger.Warn("journal write failed",
			logging.String(logging.FieldPhoto, path),
			logging.Error(err))
	}
}

// WriteSessionReport drops a plain text report into the error folder so an
// operator browsing the quarantine sees what happened without consulting
// logs. Report write failures are logged, not fatal: the quarantined files
// themselves are the durable evidence.
func (s *Sink) WriteSessionReport(sessionID, patientID, reason, detail string, files []string) error {
	if err := os.MkdirAll(s.cfg.ErrorDir(), 0o755); err != nil {
		s.logger.Warn("create error folder failed", logging.Error(err))
		return nil
	}
	path, err := fileutil.UniquePath(filepath.Join(s.cfg.ErrorDir(), "error_"+sessionID+".txt"))
	if err != nil {
		s.logger.Warn("resolve report path failed", logging.Error(err))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "session: %s\n", sessionID)
	if patientID != "" {
		fmt.Fprintf(&b, "patient: %s\n", patientID)
	}
	fmt.Fprintf(&b, "reason: %s\n", reason)
	if detail != "" {
		fmt.Fprintf(&b, "detail: %s\n", detail)
	}
	fmt.Fprintf(&b, "recorded: %s\n", time.Now().Format(time.RFC3339))
	if len(files) > 0 {
		b.WriteString("files:\n")
		for _, f := range files {
			fmt.Fprintf(&b, "  %s\n", filepath.Base(f))
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		s.logger.Warn("write session report failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err))
	}
	return nil
}

func (s *Sink) record(ctx context.Context, path, reason, detail, sessionID string) error {
	if s.store == nil {
		return nil
	}
	return s.store.RecordError(ctx, path, reason, detail, sessionID)
}

func pathsOf(photos []photo.Classified) []string {
	paths := make([]string, len(photos))
	for i, p := range photos {
		paths[i] = p.Path
	}
	return paths
}
