// Package keys defines actionable keyboard keys.
//
// A Key is either a named special key (shift, enter, f5, ...) or a printable
// character. Names follow the vocabulary used in recorded tokens such as
// "Key.shift_r", so a token's name can be looked up directly.
package keys

import (
	"fmt"
	"sort"
	"unicode"
)

// Key identifies a single key that can be pressed or released.
// The zero value is not a valid key.
type Key struct {
	name string
	r    rune
}

// Named special keys.
var (
	Alt       = Key{name: "alt"}
	AltL      = Key{name: "alt_l"}
	AltR      = Key{name: "alt_r"}
	AltGr     = Key{name: "alt_gr"}
	Backspace = Key{name: "backspace"}
	CapsLock  = Key{name: "caps_lock"}
	Cmd       = Key{name: "cmd"}
	CmdL      = Key{name: "cmd_l"}
	CmdR      = Key{name: "cmd_r"}
	Ctrl      = Key{name: "ctrl"}
	CtrlL     = Key{name: "ctrl_l"}
	CtrlR     = Key{name: "ctrl_r"}
	Delete    = Key{name: "delete"}
	Down      = Key{name: "down"}
	End       = Key{name: "end"}
	Enter     = Key{name: "enter"}
	Esc       = Key{name: "esc"}
	Home      = Key{name: "home"}
	Insert    = Key{name: "insert"}
	Left      = Key{name: "left"}
	Menu      = Key{name: "menu"}
	NumLock   = Key{name: "num_lock"}
	PageDown  = Key{name: "page_down"}
	PageUp    = Key{name: "page_up"}
	Pause     = Key{name: "pause"}
	PrintScr  = Key{name: "print_screen"}
	Right     = Key{name: "right"}
	ScrollLk  = Key{name: "scroll_lock"}
	Shift     = Key{name: "shift"}
	ShiftL    = Key{name: "shift_l"}
	ShiftR    = Key{name: "shift_r"}
	Space     = Key{name: "space"}
	Tab       = Key{name: "tab"}
	Up        = Key{name: "up"}

	MediaPlayPause  = Key{name: "media_play_pause"}
	MediaVolumeMute = Key{name: "media_volume_mute"}
	MediaVolumeDown = Key{name: "media_volume_down"}
	MediaVolumeUp   = Key{name: "media_volume_up"}
	MediaPrevious   = Key{name: "media_previous"}
	MediaNext       = Key{name: "media_next"}
)

var named = map[string]Key{}

func init() {
	for _, k := range []Key{
		Alt, AltL, AltR, AltGr, Backspace, CapsLock, Cmd, CmdL, CmdR,
		Ctrl, CtrlL, CtrlR, Delete, Down, End, Enter, Esc, Home, Insert,
		Left, Menu, NumLock, PageDown, PageUp, Pause, PrintScr, Right,
		ScrollLk, Shift, ShiftL, ShiftR, Space, Tab, Up,
		MediaPlayPause, MediaVolumeMute, MediaVolumeDown, MediaVolumeUp,
		MediaPrevious, MediaNext,
	} {
		named[k.name] = k
	}
	for i := 1; i <= 20; i++ {
		named[fmt.Sprintf("f%d", i)] = Key{name: fmt.Sprintf("f%d", i)}
	}
}

// F returns the function key Fn. It panics for n outside 1..20.
func F(n int) Key {
	k, ok := named[fmt.Sprintf("f%d", n)]
	if !ok {
		panic(fmt.Sprintf("keys: no function key f%d", n))
	}
	return k
}

// FromName looks up a special key by name.
func FromName(name string) (Key, bool) {
	k, ok := named[name]
	return k, ok
}

// FromRune returns the key for a printable character.
func FromRune(r rune) (Key, bool) {
	if r == 0 || !unicode.IsPrint(r) {
		return Key{}, false
	}
	return Key{r: r}, true
}

// Names returns every known special key name, sorted.
func Names() []string {
	out := make([]string, 0, len(named))
	for name := range named {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.name == "" && k.r == 0
}

// IsRune reports whether k is a character key.
func (k Key) IsRune() bool {
	return k.name == "" && k.r != 0
}

// Rune returns the character of a character key, or 0.
func (k Key) Rune() rune {
	return k.r
}

// Name returns the special key name, or "" for character keys.
func (k Key) Name() string {
	return k.name
}

// IsModifier reports whether k is one of the modifier keys.
func (k Key) IsModifier() bool {
	switch k {
	case Alt, AltL, AltR, AltGr, Cmd, CmdL, CmdR, Ctrl, CtrlL, CtrlR, Shift, ShiftL, ShiftR:
		return true
	}
	return false
}

func (k Key) String() string {
	switch {
	case k.name != "":
		return k.name
	case k.r != 0:
		return string(k.r)
	default:
		return "<none>"
	}
}
