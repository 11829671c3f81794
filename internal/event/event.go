// Package event defines captured input events and their single-event JSON form.
//
// An Event is a tagged union over six kinds: mouse move, mouse click, mouse
// scroll, key press, key release and the no-op void marker. Every event carries
// an absolute capture timestamp in seconds. A Buffer is an ordered sequence of
// events; insertion order is capture order and replay order.
package event

import (
	"fmt"
)

// Kind discriminates the event variants. The values are the wire names.
type Kind string

// Event kinds.
const (
	KindMouseMove   Kind = "mouse_move"
	KindMouseClick  Kind = "mouse_click"
	KindMouseScroll Kind = "mouse_scroll"
	KindKeyPress    Kind = "key_press"
	KindKeyRelease  Kind = "key_release"
	KindVoid        Kind = "void"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMouseMove, KindMouseClick, KindMouseScroll, KindKeyPress, KindKeyRelease, KindVoid:
		return true
	}
	return false
}

// Event is one captured input event. Only the fields relevant to Kind are
// meaningful; the others stay at their zero value so events compare with ==.
type Event struct {
	Kind Kind

	// Time is the absolute capture time in seconds since the Unix epoch.
	Time float64

	// Pointer position for mouse kinds.
	X int
	Y int

	// MouseClick fields.
	Button  Button
	Pressed bool

	// MouseScroll deltas.
	DX float64
	DY float64

	// Key is set for KeyPress and KeyRelease.
	Key KeyToken
}

// Move returns a MouseMove event.
func Move(x, y int, t float64) Event {
	return Event{Kind: KindMouseMove, X: x, Y: y, Time: t}
}

// Click returns a MouseClick event.
func Click(x, y int, b Button, pressed bool, t float64) Event {
	return Event{Kind: KindMouseClick, X: x, Y: y, Button: b, Pressed: pressed, Time: t}
}

// Scroll returns a MouseScroll event.
func Scroll(x, y int, dx, dy float64, t float64) Event {
	return Event{Kind: KindMouseScroll, X: x, Y: y, DX: dx, DY: dy, Time: t}
}

// Press returns a KeyPress event.
func Press(key KeyToken, t float64) Event {
	return Event{Kind: KindKeyPress, Key: key, Time: t}
}

// Release returns a KeyRelease event.
func Release(key KeyToken, t float64) Event {
	return Event{Kind: KindKeyRelease, Key: key, Time: t}
}

// Void returns the no-op marker event.
func Void(t float64) Event {
	return Event{Kind: KindVoid, Time: t}
}

// IsMouse reports whether the event carries a pointer position.
func (e Event) IsMouse() bool {
	return e.Kind == KindMouseMove || e.Kind == KindMouseClick || e.Kind == KindMouseScroll
}

func (e Event) String() string {
	switch e.Kind {
	case KindMouseMove:
		return fmt.Sprintf("%s(%d,%d)@%.3f", e.Kind, e.X, e.Y, e.Time)
	case KindMouseClick:
		state := "up"
		if e.Pressed {
			state = "down"
		}
		return fmt.Sprintf("%s(%d,%d,%s,%s)@%.3f", e.Kind, e.X, e.Y, e.Button, state, e.Time)
	case KindMouseScroll:
		return fmt.Sprintf("%s(%d,%d,%g,%g)@%.3f", e.Kind, e.X, e.Y, e.DX, e.DY, e.Time)
	case KindKeyPress, KindKeyRelease:
		return fmt.Sprintf("%s(%s)@%.3f", e.Kind, e.Key, e.Time)
	default:
		return fmt.Sprintf("%s@%.3f", e.Kind, e.Time)
	}
}

// Buffer is an ordered sequence of events.
type Buffer []Event

// Clone returns a copy of b that shares no storage with it.
func (b Buffer) Clone() Buffer {
	if b == nil {
		return nil
	}
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}

// Duration returns the span between the first and last event in seconds.
func (b Buffer) Duration() float64 {
	if len(b) < 2 {
		return 0
	}
	return b[len(b)-1].Time - b[0].Time
}

// EndsWithVoid reports whether the last event is the void marker.
func (b Buffer) EndsWithVoid() bool {
	return len(b) > 0 && b[len(b)-1].Kind == KindVoid
}

// Count returns how many events of kind k the buffer holds.
func (b Buffer) Count(k Kind) int {
	n := 0
	for _, e := range b {
		if e.Kind == k {
			n++
		}
	}
	return n
}
