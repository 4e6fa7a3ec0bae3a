package session

import (
	"time"

	"darkroom/internal/photo"
)

// Status represents the lifecycle of a reconstructed session.
type Status string

const (
	// StatusClosed means the trigger was seen and validated; migration pending.
	StatusClosed Status = "closed"
	// StatusCommitted means every file reached the patient destination.
	StatusCommitted Status = "committed"
	// StatusFailed means migration stopped partway; see the error journal.
	StatusFailed Status = "failed"
)

// Session is the set of ordinary photos attributed to one trigger photo under
// the window/count policy. A session owns its member references exclusively
// until it is committed or failed, after which the record is discarded.
type Session struct {
	// ID is the trigger capture time formatted as YYYYMMDD_HHMMSS. Stable
	// across process restarts so re-runs produce the same session identity.
	ID string

	PatientID string

	// Date is the destination folder segment, YYYY.MM.DD of the trigger
	// capture time.
	Date string

	Trigger photo.Classified

	// Members holds the ordinary photos in discovery order.
	Members []photo.Classified

	// ClosedAt is the wall-clock time the trigger was processed; it names the
	// backup folder.
	ClosedAt time.Time

	Status Status
}

// Files returns every file belonging to the session, members first, trigger
// last.
func (s *Session) Files() []string {
	paths := make([]string, 0, len(s.Members)+1)
	for _, member := range s.Members {
		paths = append(paths, member.Path)
	}
	return append(paths, s.Trigger.Path)
}

// BackupFolderName returns the timestamped folder name backups go into.
func (s *Session) BackupFolderName() string {
	return s.ClosedAt.Format("20060102_1504")
}

// IsEmpty reports whether the session holds only its trigger.
func (s *Session) IsEmpty() bool {
	return len(s.Members) == 0
}

const (
	idLayout   = "20060102_150405"
	dateLayout = "2006.01.02"
)

func newSession(trigger photo.Classified, members []photo.Classified, closedAt time.Time) *Session {
	return &Session{
		ID:        trigger.CaptureTime.Format(idLayout),
		PatientID: trigger.PatientID,
		Date:      trigger.CaptureTime.Format(dateLayout),
		Trigger:   trigger,
		Members:   members,
		ClosedAt:  closedAt,
		Status:    StatusClosed,
	}
}
