package journal

import (
	"strings"
	"time"
)

// Status represents the recorded lifecycle of a session.
type Status string

const (
	// StatusMigrating is set when a closed session starts migrating.
	StatusMigrating Status = "migrating"
	// StatusCommitted means every file reached the patient destination.
	StatusCommitted Status = "committed"
	// StatusFailed means backup or move stopped partway.
	StatusFailed Status = "failed"
	// StatusRejected means the session violated the capacity bound and was
	// quarantined wholesale.
	StatusRejected Status = "rejected"
)

var allStatuses = []Status{
	StatusMigrating,
	StatusCommitted,
	StatusFailed,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// SessionRecord is one session row persisted in SQLite.
type SessionRecord struct {
	ID           int64
	SessionID    string
	PatientID    string
	Status       Status
	PhotoCount   int
	TriggerPath  string
	DestDir      string
	BackupDir    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrorRecord is one error-sink row persisted in SQLite.
type ErrorRecord struct {
	ID        int64
	FilePath  string
	Reason    string
	Detail    string
	SessionID string
	CreatedAt time.Time
}

// Summary aggregates session and error counts for status output.
type Summary struct {
	Sessions  int
	Committed int
	Failed    int
	Rejected  int
	Errors    int
}
