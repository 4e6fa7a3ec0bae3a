package photo

import (
	"os"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// Time sources reported by CaptureTime.
const (
	TimeSourceEXIF  = "exif"
	TimeSourceMtime = "mtime"
)

// CaptureTime resolves when a photo was taken. It prefers the EXIF
// DateTimeOriginal, then CreateDate, then ModifyDate, and falls back to the
// file modification time when the image carries no usable metadata or cannot
// be parsed. Only a failing stat is an error.
func CaptureTime(path string) (time.Time, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, "", err
	}

	if ts, ok := exifTime(path); ok {
		return ts, TimeSourceEXIF, nil
	}
	return info.ModTime(), TimeSourceMtime, nil
}

func exifTime(path string) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	exif, err := imagemeta.Decode(file)
	if err != nil {
		return time.Time{}, false
	}

	for _, ts := range []time.Time{exif.DateTimeOriginal(), exif.CreateDate(), exif.ModifyDate()} {
		if !ts.IsZero() {
			return ts, true
		}
	}
	return time.Time{}, false
}
