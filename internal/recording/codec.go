// Package recording persists event buffers as JSON arrays.
//
// Decoding is lenient at the element level: an element that cannot be
// understood becomes a void marker instead of failing the whole buffer.
// Only input that is not a JSON array at all is rejected with a FormatError.
package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"slaunch/internal/event"
)

// FormatError reports recording data that is not a JSON array of events.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("recording: malformed data: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ErrNotArray is wrapped by a FormatError when the document is valid JSON
// but not an array.
var ErrNotArray = errors.New("top-level value is not an array")

// ElementError describes one element that was replaced by a void marker.
type ElementError struct {
	Index int
	Err   error
}

func (e ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.Index, e.Err)
}

// Serialize encodes buf as an indented JSON array.
func Serialize(buf event.Buffer) ([]byte, error) {
	if buf == nil {
		buf = event.Buffer{}
	}
	data, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("recording: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes a JSON array of events. See Decode.
func Deserialize(data []byte) (event.Buffer, error) {
	buf, _, err := Decode(data)
	return buf, err
}

// Decode decodes a JSON array of events and reports every element that had
// to be replaced. A replaced element becomes a Void at its own time when the
// time is readable, otherwise at the previous element's time (0 for the
// first element).
func Decode(data []byte) (event.Buffer, []ElementError, error) {
	trimmed := bytes.TrimSpace(data)
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil, &FormatError{Err: ErrNotArray}
		}
		return nil, nil, &FormatError{Err: err}
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, &FormatError{Err: ErrNotArray}
	}

	buf := make(event.Buffer, 0, len(raw))
	var issues []ElementError
	prev := 0.0
	for i, elem := range raw {
		var e event.Event
		if err := json.Unmarshal(elem, &e); err != nil {
			issues = append(issues, ElementError{Index: i, Err: err})
			e = event.Void(elementTime(elem, prev))
		}
		buf = append(buf, e)
		prev = e.Time
	}
	return buf, issues, nil
}

func elementTime(elem json.RawMessage, fallback float64) float64 {
	var probe struct {
		Time *float64 `json:"time"`
	}
	if err := json.Unmarshal(elem, &probe); err != nil || probe.Time == nil {
		return fallback
	}
	return *probe.Time
}
