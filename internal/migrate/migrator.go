package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"darkroom/internal/config"
	"darkroom/internal/errsink"
	"darkroom/internal/fileutil"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/session"
)

// step is one file's movement inside a migration plan.
type step struct {
	Source string
	Backup string
	Dest   string
}

// Plan is the fully resolved set of copies and moves for one session. It is
// computed before any filesystem mutation so a failure can report exactly
// what was and was not done.
type Plan struct {
	SessionID string
	PatientID string
	BackupDir string
	DestDir   string
	Steps     []step
}

// Migrator archives each closed session: verified backup of every file
// first, then moves into the patient's dated folder, then a done marker.
type Migrator struct {
	cfg    *config.Config
	store  *journal.Store
	sink   *errsink.Sink
	logger *slog.Logger
}

func New(cfg *config.Config, store *journal.Store, sink *errsink.Sink, logger *slog.Logger) *Migrator {
	return &Migrator{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "migrate"),
	}
}

// PlanFor resolves the backup and destination path of every session file.
// Destination names keep the original base name; when a name is already
// taken in the patient folder a numeric suffix is appended.
func (m *Migrator) PlanFor(sess *session.Session) (*Plan, error) {
	backupDir := filepath.Join(m.cfg.BackupDir(), sess.BackupFolderName())
	destDir := filepath.Join(m.cfg.Paths.WatchDir, sess.PatientID, sess.Date)

	plan := &Plan{
		SessionID: sess.ID,
		PatientID: sess.PatientID,
		BackupDir: backupDir,
		DestDir:   destDir,
	}
	claimed := make(map[string]struct{})
	for _, src := range sess.Files() {
		name := filepath.Base(src)
		dest, err := uniqueDest(destDir, name, claimed)
		if err != nil {
			return nil, fmt.Errorf("resolve destination for %s: %w", src, err)
		}
		claimed[dest] = struct{}{}
		plan.Steps = append(plan.Steps, step{
			Source: src,
			Backup: filepath.Join(backupDir, name),
			Dest:   dest,
		})
	}
	return plan, nil
}

// Migrate runs the full backup-then-move protocol for one closed session.
//
// A backup failure leaves every file in the watch folder. A move failure
// stops at the first failed file: that file goes to quarantine, files moved
// before it stay in the patient folder, files after it stay in the watch
// folder with a journaled incident each. Either way the session is recorded
// as failed and a report lands in the error folder.
//
// The returned error wraps errsink.ErrSinkFailure only when quarantining a
// failed file itself failed; callers treat that condition as fatal.
func (m *Migrator) Migrate(ctx context.Context, sess *session.Session) error {
	plan, err := m.PlanFor(sess)
	if err != nil {
		return m.fail(ctx, nil, sess, plan, fmt.Sprintf("plan: %v", err))
	}

	rec, err := m.store.NewSession(ctx, sess.ID, sess.PatientID, sess.Trigger.Path, len(sess.Members))
	if err != nil {
		m.logger.Warn("journal write failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(err))
	}

	if err := m.backupAll(plan); err != nil {
		return m.fail(ctx, rec, sess, plan, fmt.Sprintf("backup: %v", err))
	}

	if err := os.MkdirAll(plan.DestDir, 0o755); err != nil {
		return m.fail(ctx, rec, sess, plan, fmt.Sprintf("create patient folder: %v", err))
	}
	for i, st := range plan.Steps {
		if err := fileutil.MoveFile(st.Source, st.Dest); err != nil {
			return m.moveFailed(ctx, rec, sess, plan, i, err)
		}
	}

	if err := m.writeDoneMarker(sess); err != nil {
		m.logger.Warn("done marker write failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(err))
	}

	sess.Status = session.StatusCommitted
	m.update(ctx, rec, journal.StatusCommitted, plan, "")
	m.logger.Info("session committed",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldPatientID, sess.PatientID),
		logging.Int("photos", len(sess.Members)),
		logging.String("dest", plan.DestDir))
	return nil
}

// backupAll copies every session file into the timestamped backup folder
// with checksum verification. Nothing is moved until every copy verified.
func (m *Migrator) backupAll(plan *Plan) error {
	if err := os.MkdirAll(plan.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup folder: %w", err)
	}
	for _, st := range plan.Steps {
		if err := fileutil.CopyFileVerified(st.Source, st.Backup); err != nil {
			return fmt.Errorf("backup %s: %w", filepath.Base(st.Source), err)
		}
	}
	return nil
}

// moveFailed handles the first failed move at index failed: quarantine the
// failed file, journal the files never reached, mark the session failed.
func (m *Migrator) moveFailed(ctx context.Context, rec *journal.SessionRecord, sess *session.Session, plan *Plan, failed int, cause error) error {
	detail := fmt.Sprintf("move to %s: %v", plan.Steps[failed].Dest, cause)
	m.logger.Error("move failed",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldPhoto, plan.Steps[failed].Source),
		logging.Error(cause))

	sinkErr := m.sink.QuarantineFile(ctx, plan.Steps[failed].Source,
		errsink.ReasonMigrationFailure, detail, sess.ID)
	for _, st := range plan.Steps[failed+1:] {
		m.sink.RecordFailure(ctx, st.Source, errsink.ReasonMigrationFailure,
			"not moved, earlier file in the session failed", sess.ID)
	}

	sess.Status = session.StatusFailed
	m.update(ctx, rec, journal.StatusFailed, plan, detail)
	_ = m.sink.WriteSessionReport(sess.ID, sess.PatientID,
		errsink.ReasonMigrationFailure, detail, sessionPaths(plan))

	if sinkErr != nil {
		return sinkErr
	}
	return fmt.Errorf("session %s: %s", sess.ID, detail)
}

// fail marks the session failed while every file stays in the watch folder.
func (m *Migrator) fail(ctx context.Context, rec *journal.SessionRecord, sess *session.Session, plan *Plan, detail string) error {
	m.logger.Error("migration failed",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldReason, detail))

	sess.Status = session.StatusFailed
	m.update(ctx, rec, journal.StatusFailed, plan, detail)

	var files []string
	if plan != nil {
		files = sessionPaths(plan)
	}
	_ = m.sink.WriteSessionReport(sess.ID, sess.PatientID,
		errsink.ReasonMigrationFailure, detail, files)
	return fmt.Errorf("session %s: %s", sess.ID, detail)
}

func (m *Migrator) update(ctx context.Context, rec *journal.SessionRecord, status journal.Status, plan *Plan, detail string) {
	if rec == nil {
		return
	}
	rec.Status = status
	rec.ErrorMessage = detail
	if plan != nil {
		rec.BackupDir = plan.BackupDir
		if status == journal.StatusCommitted {
			rec.DestDir = plan.DestDir
		}
	}
	if err := m.store.Update(ctx, rec); err != nil {
		m.logger.Warn("journal update failed",
			logging.String(logging.FieldSessionID, rec.SessionID),
			logging.Error(err))
	}
}

// writeDoneMarker drops a small receipt file named after the session and
// patient so operators and scripts can cheaply detect completed sessions.
func (m *Migrator) writeDoneMarker(sess *session.Session) error {
	if err := os.MkdirAll(m.cfg.DoneDir(), 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("done_%s_%s.txt", sess.ID, sess.PatientID)
	content := fmt.Sprintf("session: %s\npatient: %s\nphotos: %d\n",
		sess.ID, sess.PatientID, len(sess.Members))
	return os.WriteFile(filepath.Join(m.cfg.DoneDir(), name), []byte(content), 0o644)
}

// uniqueDest picks a destination path that collides neither with files
// already in the patient folder nor with paths claimed earlier in the same
// plan.
func uniqueDest(destDir, name string, claimed map[string]struct{}) (string, error) {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for n := 0; n < 10000; n++ {
		candidate := filepath.Join(destDir, name)
		if n > 0 {
			candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		}
		if _, taken := claimed[candidate]; taken {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s in %s", name, destDir)
}

func sessionPaths(plan *Plan) []string {
	paths := make([]string, len(plan.Steps))
	for i, st := range plan.Steps {
		paths[i] = st.Source
	}
	return paths
}
