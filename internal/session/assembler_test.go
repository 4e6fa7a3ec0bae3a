package session

import (
	"fmt"
	"testing"
	"time"

	"darkroom/internal/photo"
)

var base = time.Date(2026, 5, 2, 10, 0, 0, 0, time.Local)

func ordinary(path string, captured time.Time) photo.Classified {
	return photo.Classified{
		Event:       photo.Event{Path: path},
		Class:       photo.ClassOrdinary,
		CaptureTime: captured,
	}
}

func trigger(patientID string, captured time.Time) photo.Classified {
	return photo.Classified{
		Event:       photo.Event{Path: "/in/qr_" + patientID + ".jpg"},
		Class:       photo.ClassTrigger,
		PatientID:   patientID,
		CaptureTime: captured,
	}
}

func TestTriggerClosesSessionWithInWindowPhotos(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	p1 := ordinary("/in/p1.jpg", base)
	p2 := ordinary("/in/p2.jpg", base.Add(3*time.Minute))
	p3 := ordinary("/in/p3.jpg", base.Add(5*time.Minute))
	for _, p := range []photo.Classified{p1, p2, p3} {
		if out := a.Observe(p); out.Session != nil || out.Rejection != nil {
			t.Fatalf("ordinary photo produced outcome %+v", out)
		}
	}

	out := a.Observe(trigger("42", base.Add(6*time.Minute)))
	if out.Session == nil {
		t.Fatal("expected closed session")
	}
	sess := out.Session

	if sess.PatientID != "42" {
		t.Fatalf("patient id = %q", sess.PatientID)
	}
	if sess.Date != "2026.05.02" {
		t.Fatalf("date = %q", sess.Date)
	}
	if sess.ID != "20260502_100600" {
		t.Fatalf("session id = %q", sess.ID)
	}
	if len(sess.Members) != 3 {
		t.Fatalf("members = %d, want 3", len(sess.Members))
	}
	for i, want := range []string{"/in/p1.jpg", "/in/p2.jpg", "/in/p3.jpg"} {
		if sess.Members[i].Path != want {
			t.Fatalf("member[%d] = %q, want %q (discovery order)", i, sess.Members[i].Path, want)
		}
	}
	if a.Buffered() != 0 {
		t.Fatalf("buffer = %d after close, want 0", a.Buffered())
	}
}

func TestOutOfWindowPhotoStaysBuffered(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	a.Observe(ordinary("/in/old.jpg", base.Add(-61*time.Minute)))
	a.Observe(ordinary("/in/fresh.jpg", base.Add(-5*time.Minute)))

	out := a.Observe(trigger("42", base))
	if out.Session == nil {
		t.Fatal("expected closed session")
	}
	if len(out.Session.Members) != 1 || out.Session.Members[0].Path != "/in/fresh.jpg" {
		t.Fatalf("members = %+v, want only fresh.jpg", out.Session.Members)
	}
	if a.Buffered() != 1 {
		t.Fatalf("buffer = %d, want 1 (the out-of-window photo)", a.Buffered())
	}
}

func TestWindowBoundaryIsInclusive(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	a.Observe(ordinary("/in/edge.jpg", base.Add(-60*time.Minute)))
	a.Observe(ordinary("/in/at-trigger.jpg", base))

	out := a.Observe(trigger("7", base))
	if out.Session == nil || len(out.Session.Members) != 2 {
		t.Fatalf("expected both boundary photos selected, got %+v", out)
	}
}

func TestPhotoAfterTriggerTimeNotSelected(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	a.Observe(ordinary("/in/later.jpg", base.Add(time.Minute)))

	out := a.Observe(trigger("7", base))
	if out.Session == nil {
		t.Fatal("expected closed session")
	}
	if len(out.Session.Members) != 0 {
		t.Fatalf("photo captured after the trigger must not be selected: %+v", out.Session.Members)
	}
	if a.Buffered() != 1 {
		t.Fatalf("buffer = %d, want 1", a.Buffered())
	}
}

func TestCapacityViolationRejectsWholesale(t *testing.T) {
	const max = 200
	a := NewAssembler(max, time.Hour)

	for i := 0; i < max+1; i++ {
		a.Observe(ordinary(fmt.Sprintf("/in/p%03d.jpg", i), base.Add(time.Duration(i)*time.Second)))
	}
	if !a.OverCapacity() {
		t.Fatal("expected over-capacity flag")
	}

	out := a.Observe(trigger("42", base.Add(10*time.Minute)))
	if out.Session != nil {
		t.Fatal("over-capacity selection must not close a session")
	}
	if out.Rejection == nil {
		t.Fatal("expected rejection")
	}
	if len(out.Rejection.Selected) != max+1 {
		t.Fatalf("rejected %d photos, want %d", len(out.Rejection.Selected), max+1)
	}
	if out.Rejection.Limit != max {
		t.Fatalf("limit = %d", out.Rejection.Limit)
	}
	if a.Buffered() != 0 {
		t.Fatalf("rejected photos must leave the buffer, have %d", a.Buffered())
	}
}

func TestBufferAtCapacityStillCloses(t *testing.T) {
	const max = 5
	a := NewAssembler(max, time.Hour)

	for i := 0; i < max; i++ {
		a.Observe(ordinary(fmt.Sprintf("/in/p%d.jpg", i), base.Add(time.Duration(i)*time.Second)))
	}

	out := a.Observe(trigger("9", base.Add(time.Minute)))
	if out.Session == nil || len(out.Session.Members) != max {
		t.Fatalf("selection equal to the bound must close, got %+v", out)
	}
}

func TestEmptySessionClosesWithOnlyTrigger(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	out := a.Observe(trigger("42", base))
	if out.Session == nil {
		t.Fatal("expected session")
	}
	if !out.Session.IsEmpty() {
		t.Fatalf("expected empty session, members = %d", len(out.Session.Members))
	}
	if got := out.Session.Files(); len(got) != 1 || got[0] != out.Session.Trigger.Path {
		t.Fatalf("Files() = %v", got)
	}
}

func TestConsecutiveTriggersClaimDisjointPhotos(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	a.Observe(ordinary("/in/p1.jpg", base))
	first := a.Observe(trigger("1", base.Add(time.Minute)))
	if first.Session == nil || len(first.Session.Members) != 1 {
		t.Fatalf("first close: %+v", first)
	}

	// No new photos: the second trigger closes an empty session, never
	// re-claiming photos from the first.
	second := a.Observe(trigger("2", base.Add(2*time.Minute)))
	if second.Session == nil || !second.Session.IsEmpty() {
		t.Fatalf("second close: %+v", second)
	}
}

func TestRediscoveredPathDoesNotDuplicate(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	a.Observe(ordinary("/in/p1.jpg", base))
	a.Observe(ordinary("/in/p1.jpg", base))
	if a.Buffered() != 1 {
		t.Fatalf("buffer = %d, want 1", a.Buffered())
	}

	out := a.Observe(trigger("42", base.Add(time.Minute)))
	if out.Session == nil || len(out.Session.Members) != 1 {
		t.Fatalf("expected single member, got %+v", out)
	}
}

func TestOldestBuffered(t *testing.T) {
	a := NewAssembler(200, time.Hour)

	if _, ok := a.OldestBuffered(); ok {
		t.Fatal("empty buffer reported an oldest photo")
	}

	a.Observe(ordinary("/in/p2.jpg", base.Add(time.Minute)))
	a.Observe(ordinary("/in/p1.jpg", base))

	oldest, ok := a.OldestBuffered()
	if !ok || !oldest.Equal(base) {
		t.Fatalf("oldest = %v ok=%v", oldest, ok)
	}
}

func TestBackupFolderName(t *testing.T) {
	s := Session{ClosedAt: time.Date(2026, 5, 2, 10, 6, 59, 0, time.Local)}
	if got := s.BackupFolderName(); got != "20260502_1006" {
		t.Fatalf("BackupFolderName = %q", got)
	}
}
