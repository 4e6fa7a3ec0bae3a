package photo

import (
	"time"
)

// Class tags a classified photo.
type Class string

const (
	// ClassOrdinary is a photo with no embedded marker.
	ClassOrdinary Class = "ordinary"
	// ClassTrigger is a photo whose marker decoded to a patient id.
	ClassTrigger Class = "trigger"
	// ClassUnreadable is a photo that could not be opened or decoded at all.
	ClassUnreadable Class = "unreadable"
)

// Event is one stabilized file observed in the watch folder. Events are
// immutable once emitted: the watcher only emits a file after its size and
// mtime have held still over the settle window.
type Event struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Classified is an Event plus its classification and resolved capture time.
// Produced once per event by the classifier; read-only thereafter.
type Classified struct {
	Event

	Class Class

	// PatientID is set only for ClassTrigger.
	PatientID string

	// CaptureTime is the EXIF capture timestamp when present, otherwise the
	// file modification time. Zero for ClassUnreadable.
	CaptureTime time.Time

	// TimeSource records where CaptureTime came from ("exif" or "mtime").
	TimeSource string
}

// IsTrigger reports whether the photo closes a session.
func (c Classified) IsTrigger() bool {
	return c.Class == ClassTrigger
}
