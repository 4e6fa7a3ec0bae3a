package session

import (
	"time"

	"darkroom/internal/photo"
)

// Rejection reports a trigger whose selection exceeded the session capacity.
// The selected photos and the trigger have been removed from the buffer; the
// caller routes all of them to the error sink.
type Rejection struct {
	Trigger  photo.Classified
	Selected []photo.Classified
	Limit    int
}

// Outcome is the result of observing one classified photo. At most one field
// is set: a closed session ready for migration, or a capacity rejection.
type Outcome struct {
	Session   *Session
	Rejection *Rejection
}

// Assembler owns the buffer of ordinary photos not yet attached to any closed
// session. It is a pure state machine: no filesystem access, no goroutines.
// The pipeline feeds it one photo at a time, so triggers can never race over
// buffered photos.
type Assembler struct {
	maxPhotos int
	window    time.Duration
	now       func() time.Time

	buffer []photo.Classified
}

// NewAssembler constructs an assembler with the given close-time bounds.
func NewAssembler(maxPhotos int, window time.Duration) *Assembler {
	return &Assembler{
		maxPhotos: maxPhotos,
		window:    window,
		now:       time.Now,
	}
}

// Observe feeds one classified photo into the state machine.
//
// Ordinary photos are buffered; exceeding the capacity bound does not drop
// anything (capacity is enforced when a trigger closes a session, so no
// clinically relevant photo is lost silently). A trigger selects every
// buffered photo captured within [trigger−window, trigger] and either closes
// a session or, when the selection exceeds the capacity bound, rejects it
// wholesale. Out-of-window photos stay buffered for a future trigger.
func (a *Assembler) Observe(p photo.Classified) Outcome {
	switch p.Class {
	case photo.ClassOrdinary:
		a.add(p)
		return Outcome{}
	case photo.ClassTrigger:
		return a.close(p)
	default:
		// Unreadable photos are quarantined before they reach the assembler.
		return Outcome{}
	}
}

func (a *Assembler) add(p photo.Classified) {
	// A rediscovered path (startup scan plus a live event for the same file)
	// replaces the earlier entry instead of duplicating it.
	for i := range a.buffer {
		if a.buffer[i].Path == p.Path {
			a.buffer[i] = p
			return
		}
	}
	a.buffer = append(a.buffer, p)
}

func (a *Assembler) close(trigger photo.Classified) Outcome {
	cutoff := trigger.CaptureTime.Add(-a.window)

	selected := make([]photo.Classified, 0, len(a.buffer))
	remainder := a.buffer[:0:0]
	for _, p := range a.buffer {
		if !p.CaptureTime.Before(cutoff) && !p.CaptureTime.After(trigger.CaptureTime) {
			selected = append(selected, p)
		} else {
			remainder = append(remainder, p)
		}
	}
	a.buffer = remainder

	if len(selected) > a.maxPhotos {
		return Outcome{Rejection: &Rejection{
			Trigger:  trigger,
			Selected: selected,
			Limit:    a.maxPhotos,
		}}
	}

	return Outcome{Session: newSession(trigger, selected, a.now())}
}

// Buffered returns the number of ordinary photos awaiting a trigger.
func (a *Assembler) Buffered() int {
	return len(a.buffer)
}

// OverCapacity reports whether the buffer currently exceeds the per-session
// photo bound. Accumulation continues regardless; the flag only surfaces the
// condition for logging.
func (a *Assembler) OverCapacity() bool {
	return len(a.buffer) > a.maxPhotos
}

// OldestBuffered returns the earliest capture time still buffered. The second
// return is false when the buffer is empty.
func (a *Assembler) OldestBuffered() (time.Time, bool) {
	if len(a.buffer) == 0 {
		return time.Time{}, false
	}
	oldest := a.buffer[0].CaptureTime
	for _, p := range a.buffer[1:] {
		if p.CaptureTime.Before(oldest) {
			oldest = p.CaptureTime
		}
	}
	return oldest, true
}
