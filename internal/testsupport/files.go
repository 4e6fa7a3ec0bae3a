package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WritePhoto creates a fake photo file with the given content and sets its
// modification time. The content is arbitrary bytes: timestamp resolution
// falls back to mtime for files without EXIF, which is exactly what these
// fixtures exercise.
func WritePhoto(t testing.TB, path string, modTime time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("photo:"+filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}

// ReadFile returns the file content, failing the test on error.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
