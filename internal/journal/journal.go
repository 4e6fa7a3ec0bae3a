package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"darkroom/internal/config"
)

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const sessionColumns = "id, session_id, patient_id, status, photo_count, trigger_path, dest_dir, backup_dir, error_message, created_at, updated_at"

// NewSession inserts a session row in the migrating state.
func (s *Store) NewSession(ctx context.Context, sessionID, patientID, triggerPath string, photoCount int) (*SessionRecord, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            session_id, patient_id, status, photo_count, trigger_path,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		patientID,
		StatusMigrating,
		photoCount,
		nullableString(triggerPath),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a session record by row id.
func (s *Store) GetByID(ctx context.Context, id int64) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

// Update persists changes to an existing session record.
func (s *Store) Update(ctx context.Context, rec *SessionRecord) error {
	if rec == nil {
		return errors.New("session record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions
         SET session_id = ?, patient_id = ?, status = ?, photo_count = ?,
             trigger_path = ?, dest_dir = ?, backup_dir = ?, error_message = ?,
             updated_at = ?
         WHERE id = ?`,
		rec.SessionID,
		rec.PatientID,
		rec.Status,
		rec.PhotoCount,
		nullableString(rec.TriggerPath),
		nullableString(rec.DestDir),
		nullableString(rec.BackupDir),
		nullableString(rec.ErrorMessage),
		rec.UpdatedAt.Format(time.RFC3339Nano),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// RecentSessions returns the most recent session records, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordError inserts one error-sink row.
func (s *Store) RecordError(ctx context.Context, filePath, reason, detail, sessionID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO errors (file_path, reason, detail, session_id, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		filePath,
		reason,
		nullableString(detail),
		nullableString(sessionID),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert error record: %w", err)
	}
	return nil
}

// RecentErrors returns the most recent error records, newest first.
func (s *Store) RecentErrors(ctx context.Context, limit int) ([]*ErrorRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_path, reason, detail, session_id, created_at
         FROM errors ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer rows.Close()

	var records []*ErrorRecord
	for rows.Next() {
		rec, err := scanError(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ErrorCountForFile returns how many error rows reference a path.
func (s *Store) ErrorCountForFile(ctx context.Context, filePath string) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM errors WHERE file_path = ?`, filePath)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count errors for file: %w", err)
	}
	return count, nil
}

// Summarize aggregates session and error counts.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var summary Summary

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("summarize sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return summary, err
		}
		summary.Sessions += count
		switch Status(statusStr) {
		case StatusCommitted:
			summary.Committed = count
		case StatusFailed:
			summary.Failed = count
		case StatusRejected:
			summary.Rejected = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM errors`)
	if err := row.Scan(&summary.Errors); err != nil {
		return summary, fmt.Errorf("count errors: %w", err)
	}
	return summary, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*SessionRecord, error) {
	var (
		id           int64
		sessionID    string
		patientID    string
		statusStr    string
		photoCount   int
		triggerPath  sql.NullString
		destDir      sql.NullString
		backupDir    sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&patientID,
		&statusStr,
		&photoCount,
		&triggerPath,
		&destDir,
		&backupDir,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &SessionRecord{
		ID:           id,
		SessionID:    sessionID,
		PatientID:    patientID,
		Status:       Status(statusStr),
		PhotoCount:   photoCount,
		TriggerPath:  triggerPath.String,
		DestDir:      destDir.String,
		BackupDir:    backupDir.String,
		ErrorMessage: errorMessage.String,
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		rec.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

func scanError(scanner interface{ Scan(dest ...any) error }) (*ErrorRecord, error) {
	var (
		id         int64
		filePath   string
		reason     string
		detail     sql.NullString
		sessionID  sql.NullString
		createdRaw string
	)

	if err := scanner.Scan(&id, &filePath, &reason, &detail, &sessionID, &createdRaw); err != nil {
		return nil, err
	}

	rec := &ErrorRecord{
		ID:        id,
		FilePath:  filePath,
		Reason:    reason,
		Detail:    detail.String,
		SessionID: sessionID.String,
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
