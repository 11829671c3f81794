package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Decoding errors for a single event object.
var (
	ErrUnknownKind  = errors.New("event: unknown type")
	ErrMissingField = errors.New("event: missing field")
)

// wireEvent is the JSON object form. Pointer fields distinguish absent
// from zero so decoding can insist on the fields a kind needs.
type wireEvent struct {
	Type    Kind     `json:"type"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Button  *string  `json:"button,omitempty"`
	Pressed *bool    `json:"pressed,omitempty"`
	DX      *float64 `json:"dx,omitempty"`
	DY      *float64 `json:"dy,omitempty"`
	Key     *string  `json:"key,omitempty"`
	Time    *float64 `json:"time"`
}

// MarshalJSON encodes e with only the fields its kind defines.
func (e Event) MarshalJSON() ([]byte, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(e.Kind))
	}
	w := wireEvent{Type: e.Kind, Time: &e.Time}
	if e.IsMouse() {
		x, y := float64(e.X), float64(e.Y)
		w.X, w.Y = &x, &y
	}
	switch e.Kind {
	case KindMouseClick:
		b := e.Button.Format()
		w.Button = &b
		w.Pressed = &e.Pressed
	case KindMouseScroll:
		w.DX, w.DY = &e.DX, &e.DY
	case KindKeyPress, KindKeyRelease:
		k := e.Key.Format()
		w.Key = &k
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a single event strictly: the type must be known and
// every field the kind needs must be present.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(w.Type))
	}
	if w.Time == nil {
		return fmt.Errorf("%w: time", ErrMissingField)
	}
	out := Event{Kind: w.Type, Time: *w.Time}

	if out.IsMouse() {
		if w.X == nil || w.Y == nil {
			return fmt.Errorf("%w: x/y", ErrMissingField)
		}
		out.X = int(math.Round(*w.X))
		out.Y = int(math.Round(*w.Y))
	}

	switch w.Type {
	case KindMouseClick:
		if w.Button == nil {
			return fmt.Errorf("%w: button", ErrMissingField)
		}
		if w.Pressed == nil {
			return fmt.Errorf("%w: pressed", ErrMissingField)
		}
		out.Button = ParseButton(*w.Button)
		out.Pressed = *w.Pressed
	case KindMouseScroll:
		if w.DX == nil || w.DY == nil {
			return fmt.Errorf("%w: dx/dy", ErrMissingField)
		}
		out.DX, out.DY = *w.DX, *w.DY
	case KindKeyPress, KindKeyRelease:
		if w.Key == nil {
			return fmt.Errorf("%w: key", ErrMissingField)
		}
		out.Key = ParseToken(*w.Key)
	}

	*e = out
	return nil
}
