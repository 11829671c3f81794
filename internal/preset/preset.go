// Package preset reads and writes .slaunch preset documents.
//
// A preset is a list of key=value header lines. Recorded presets carry a
// repeat count (how_many) and either an embedded recording, introduced by the
// record_events= sentinel line and running to the end of the file, or a
// legacy record_path= reference to a standalone recording file. Header lines
// this package does not interpret are preserved verbatim.
package preset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"slaunch/internal/event"
	"slaunch/internal/recording"
)

// Extension is the preset file extension.
const Extension = ".slaunch"

// Header keys with meaning to this package.
const (
	KeyTitle      = "title"
	KeyType       = "type"
	KeyIcon       = "icon"
	KeyScript     = "script"
	KeyHowMany    = "how_many"
	KeyRecordPath = "record_path"

	sentinel = "record_events="
)

// TypeRecorded is the type value of presets that replay a recording.
const TypeRecorded = "recorded"

// Infinite is the how_many value meaning repeat until cancelled.
const Infinite = -1

// ErrNoRecording is returned by Resolve when the preset carries neither an
// embedded recording nor a record_path.
var ErrNoRecording = errors.New("preset: no recording")

// Document is a parsed preset.
type Document struct {
	// Lines are the header lines other than how_many and record_path, in
	// file order.
	Lines []string

	HowMany    int
	RecordPath string

	// Events is the embedded recording; nil when the document has none.
	Events event.Buffer
}

// New returns a recorded preset with the standard header.
func New(title string, howMany int, events event.Buffer) *Document {
	return &Document{
		Lines: []string{
			KeyTitle + "=" + title,
			KeyType + "=" + TypeRecorded,
			KeyIcon + "=none",
			KeyScript + "=",
		},
		HowMany: NormalizeHowMany(howMany),
		Events:  events,
	}
}

// NormalizeHowMany maps anything other than a positive count or Infinite to 1.
func NormalizeHowMany(n int) int {
	if n == Infinite || n >= 1 {
		return n
	}
	return 1
}

// Parse decodes a preset. A malformed embedded recording yields a
// *recording.FormatError; a malformed how_many silently becomes 1.
func Parse(data []byte) (*Document, error) {
	doc := &Document{HowMany: 1}
	rest := data
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		text := strings.TrimRight(string(line), "\r")
		trimmed := strings.TrimSpace(text)

		switch {
		case trimmed == sentinel:
			buf, err := recording.Deserialize(rest)
			if err != nil {
				return nil, err
			}
			doc.Events = buf
			doc.trimLines()
			return doc, nil
		case strings.HasPrefix(trimmed, KeyHowMany+"="):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, KeyHowMany+"=")))
			if err != nil {
				n = 1
			}
			doc.HowMany = NormalizeHowMany(n)
		case strings.HasPrefix(trimmed, KeyRecordPath+"="):
			doc.RecordPath = strings.TrimPrefix(trimmed, KeyRecordPath+"=")
		default:
			doc.Lines = append(doc.Lines, text)
		}
	}
	doc.trimLines()
	return doc, nil
}

func (d *Document) trimLines() {
	for len(d.Lines) > 0 && strings.TrimSpace(d.Lines[len(d.Lines)-1]) == "" {
		d.Lines = d.Lines[:len(d.Lines)-1]
	}
}

// Load reads and parses the preset at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset: read: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Get returns the value of the first header line with the given key.
func (d *Document) Get(key string) string {
	prefix := key + "="
	for _, line := range d.Lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

// Set replaces the first header line with the given key or appends one.
func (d *Document) Set(key, value string) {
	prefix := key + "="
	for i, line := range d.Lines {
		if strings.HasPrefix(line, prefix) {
			d.Lines[i] = prefix + value
			return
		}
	}
	d.Lines = append(d.Lines, prefix+value)
}

// Title returns the preset title.
func (d *Document) Title() string {
	return d.Get(KeyTitle)
}

// IsRecorded reports whether the preset replays a recording.
func (d *Document) IsRecorded() bool {
	return d.Get(KeyType) == TypeRecorded || d.Events != nil || d.RecordPath != ""
}

// Bytes encodes the document. The embedded recording, when present, is
// always last.
func (d *Document) Bytes() ([]byte, error) {
	var b bytes.Buffer
	for _, line := range d.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if d.RecordPath != "" {
		fmt.Fprintf(&b, "%s=%s\n", KeyRecordPath, d.RecordPath)
	}
	fmt.Fprintf(&b, "%s=%d\n", KeyHowMany, NormalizeHowMany(d.HowMany))
	if d.Events != nil {
		data, err := recording.Serialize(d.Events)
		if err != nil {
			return nil, err
		}
		b.WriteString(sentinel)
		b.WriteByte('\n')
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// Save writes the document to path, replacing it atomically.
func Save(path string, d *Document) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("preset: create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("preset: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("preset: rename: %w", err)
	}
	return nil
}

// Resolve returns the preset's recording: the embedded one if present,
// otherwise the file named by record_path. A bare file name is looked up in
// recordsDir, as is a relative path that does not exist as given.
func (d *Document) Resolve(recordsDir string) (event.Buffer, error) {
	if d.Events != nil {
		return d.Events, nil
	}
	if d.RecordPath == "" {
		return nil, ErrNoRecording
	}
	return recording.LoadRecord(d.RecordFile(recordsDir))
}

// RecordFile returns the resolved path of a legacy record_path reference.
func (d *Document) RecordFile(recordsDir string) string {
	p := d.RecordPath
	switch {
	case p == "" || filepath.IsAbs(p):
		return p
	case filepath.Dir(p) == ".":
		return filepath.Join(recordsDir, p)
	}
	if _, err := os.Stat(p); err != nil {
		return filepath.Join(recordsDir, p)
	}
	return p
}
