package capture

import (
	"sort"
	"time"

	"slaunch/internal/event"
)

// State is the input state tracked while recording: which keys and buttons
// are down and where the pointer was last seen.
type State struct {
	HeldKeys    map[event.KeyToken]struct{}
	HeldButtons map[event.Button]struct{}
	CursorX     int
	CursorY     int
}

// NewState returns an empty State.
func NewState() State {
	return State{
		HeldKeys:    make(map[event.KeyToken]struct{}),
		HeldButtons: make(map[event.Button]struct{}),
	}
}

// Track updates the state with e.
func (s *State) Track(e event.Event) {
	if e.IsMouse() {
		s.CursorX, s.CursorY = e.X, e.Y
	}
	switch e.Kind {
	case event.KindMouseClick:
		if e.Pressed {
			s.HeldButtons[e.Button] = struct{}{}
		} else {
			delete(s.HeldButtons, e.Button)
		}
	case event.KindKeyPress:
		s.HeldKeys[e.Key] = struct{}{}
	case event.KindKeyRelease:
		delete(s.HeldKeys, e.Key)
	}
}

func (s State) clone() State {
	out := NewState()
	for k := range s.HeldKeys {
		out.HeldKeys[k] = struct{}{}
	}
	for b := range s.HeldButtons {
		out.HeldButtons[b] = struct{}{}
	}
	out.CursorX, out.CursorY = s.CursorX, s.CursorY
	return out
}

// Finalize turns a raw capture into a replayable buffer.
//
// The first TrimCount events are dropped; fewer raw events than that yield
// an empty buffer. Every button and key still held in st gets a synthesized
// release at now unless the trimmed buffer already releases it after its
// last press. Buttons are released at the last cursor position, the primary
// button first. Keys are released in token order. Finally exactly one Void
// is appended VoidOffset after the last event; trailing voids already in
// the input are dropped first so the marker is never duplicated.
func Finalize(raw event.Buffer, st State, now float64, opts Options) event.Buffer {
	opts = opts.withDefaults()
	trim := max(opts.TrimCount, 0)
	if len(raw) < trim {
		return event.Buffer{}
	}
	buf := raw[trim:].Clone()
	for len(buf) > 0 && buf[len(buf)-1].Kind == event.KindVoid {
		buf = buf[:len(buf)-1]
	}
	if len(buf) == 0 {
		return event.Buffer{}
	}

	for _, b := range heldButtons(st, opts.StopButton) {
		if !releasedAfterPress(buf, func(e event.Event) (bool, bool) {
			return e.Kind == event.KindMouseClick && e.Button == b, e.Pressed
		}) {
			buf = append(buf, event.Click(st.CursorX, st.CursorY, b, false, now))
		}
	}

	for _, k := range heldKeys(st) {
		if !releasedAfterPress(buf, func(e event.Event) (bool, bool) {
			switch e.Kind {
			case event.KindKeyPress:
				return e.Key == k, true
			case event.KindKeyRelease:
				return e.Key == k, false
			}
			return false, false
		}) {
			buf = append(buf, event.Release(k, now))
		}
	}

	last := buf[len(buf)-1].Time
	return append(buf, event.Void(last+opts.VoidOffset.Seconds()))
}

// releasedAfterPress scans buf backwards for the latest event matching the
// input and reports whether it is a release. match returns (matches, isPress).
func releasedAfterPress(buf event.Buffer, match func(event.Event) (bool, bool)) bool {
	for i := len(buf) - 1; i >= 0; i-- {
		if ok, pressed := match(buf[i]); ok {
			return !pressed
		}
	}
	return false
}

func heldButtons(st State, primary event.Button) []event.Button {
	out := make([]event.Button, 0, len(st.HeldButtons))
	for b := range st.HeldButtons {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i] == primary) != (out[j] == primary) {
			return out[i] == primary
		}
		return out[i] < out[j]
	})
	return out
}

func heldKeys(st State) []event.KeyToken {
	out := make([]event.KeyToken, 0, len(st.HeldKeys))
	for k := range st.HeldKeys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Format() < out[j].Format()
	})
	return out
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
