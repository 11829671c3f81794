package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slaunch/internal/event"
)

// ErrEmptyRecording is returned when asked to save a buffer with no events.
var ErrEmptyRecording = errors.New("recording: no events to save")

const fileTimeLayout = "20060102_150405"

// FileName returns the standalone file name for a recording created at t.
func FileName(t time.Time) string {
	return "record_" + t.Format(fileTimeLayout) + ".json"
}

// SaveRecord writes buf to a new file in dir named after now and returns its
// path. An existing file is never overwritten; a numeric suffix is added
// instead.
func SaveRecord(dir string, buf event.Buffer, now time.Time) (string, error) {
	if len(buf) == 0 {
		return "", ErrEmptyRecording
	}
	data, err := Serialize(buf)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("recording: create directory: %w", err)
	}

	base := "record_" + now.Format(fileTimeLayout)
	for i := 0; ; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("recording: create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("recording: write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("recording: close %s: %w", name, err)
		}
		return path, nil
	}
}

// LoadRecord reads and leniently decodes a standalone recording file.
func LoadRecord(path string) (event.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recording: read: %w", err)
	}
	return Deserialize(data)
}
