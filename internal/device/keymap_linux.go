//go:build linux

package device

import (
	"unicode"

	evdev "github.com/holoplot/go-evdev"

	"slaunch/internal/event"
	"slaunch/internal/keys"
)

var namedCodes = map[string]evdev.EvCode{
	"alt":               evdev.KEY_LEFTALT,
	"alt_l":             evdev.KEY_LEFTALT,
	"alt_r":             evdev.KEY_RIGHTALT,
	"alt_gr":            evdev.KEY_RIGHTALT,
	"backspace":         evdev.KEY_BACKSPACE,
	"caps_lock":         evdev.KEY_CAPSLOCK,
	"cmd":               evdev.KEY_LEFTMETA,
	"cmd_l":             evdev.KEY_LEFTMETA,
	"cmd_r":             evdev.KEY_RIGHTMETA,
	"ctrl":              evdev.KEY_LEFTCTRL,
	"ctrl_l":            evdev.KEY_LEFTCTRL,
	"ctrl_r":            evdev.KEY_RIGHTCTRL,
	"delete":            evdev.KEY_DELETE,
	"down":              evdev.KEY_DOWN,
	"end":               evdev.KEY_END,
	"enter":             evdev.KEY_ENTER,
	"esc":               evdev.KEY_ESC,
	"home":              evdev.KEY_HOME,
	"insert":            evdev.KEY_INSERT,
	"left":              evdev.KEY_LEFT,
	"menu":              evdev.KEY_COMPOSE,
	"num_lock":          evdev.KEY_NUMLOCK,
	"page_down":         evdev.KEY_PAGEDOWN,
	"page_up":           evdev.KEY_PAGEUP,
	"pause":             evdev.KEY_PAUSE,
	"print_screen":      evdev.KEY_SYSRQ,
	"right":             evdev.KEY_RIGHT,
	"scroll_lock":       evdev.KEY_SCROLLLOCK,
	"shift":             evdev.KEY_LEFTSHIFT,
	"shift_l":           evdev.KEY_LEFTSHIFT,
	"shift_r":           evdev.KEY_RIGHTSHIFT,
	"space":             evdev.KEY_SPACE,
	"tab":               evdev.KEY_TAB,
	"up":                evdev.KEY_UP,
	"media_play_pause":  evdev.KEY_PLAYPAUSE,
	"media_volume_mute": evdev.KEY_MUTE,
	"media_volume_down": evdev.KEY_VOLUMEDOWN,
	"media_volume_up":   evdev.KEY_VOLUMEUP,
	"media_previous":    evdev.KEY_PREVIOUSSONG,
	"media_next":        evdev.KEY_NEXTSONG,
	"f1":                evdev.KEY_F1,
	"f2":                evdev.KEY_F2,
	"f3":                evdev.KEY_F3,
	"f4":                evdev.KEY_F4,
	"f5":                evdev.KEY_F5,
	"f6":                evdev.KEY_F6,
	"f7":                evdev.KEY_F7,
	"f8":                evdev.KEY_F8,
	"f9":                evdev.KEY_F9,
	"f10":               evdev.KEY_F10,
	"f11":               evdev.KEY_F11,
	"f12":               evdev.KEY_F12,
	"f13":               evdev.KEY_F13,
	"f14":               evdev.KEY_F14,
	"f15":               evdev.KEY_F15,
	"f16":               evdev.KEY_F16,
	"f17":               evdev.KEY_F17,
	"f18":               evdev.KEY_F18,
	"f19":               evdev.KEY_F19,
	"f20":               evdev.KEY_F20,
}

// codeNames is the reverse of namedCodes. Where several names share a code
// the shortest wins, so the left modifiers record as "shift", "ctrl", ...
var codeNames = map[evdev.EvCode]string{}

// charCodes maps characters to the key producing them on a US layout and
// whether shift is needed.
type charCode struct {
	code  evdev.EvCode
	shift bool
}

var charCodes = map[rune]charCode{}

// plainChars and shiftedChars are indexed by the same code.
var (
	plainChars   = map[evdev.EvCode]rune{}
	shiftedChars = map[evdev.EvCode]rune{}
)

func init() {
	for name, code := range namedCodes {
		prev, ok := codeNames[code]
		if ok && (len(prev) < len(name) || len(prev) == len(name) && prev < name) {
			continue
		}
		codeNames[code] = name
	}

	letters := []evdev.EvCode{
		evdev.KEY_A, evdev.KEY_B, evdev.KEY_C, evdev.KEY_D, evdev.KEY_E, evdev.KEY_F,
		evdev.KEY_G, evdev.KEY_H, evdev.KEY_I, evdev.KEY_J, evdev.KEY_K, evdev.KEY_L,
		evdev.KEY_M, evdev.KEY_N, evdev.KEY_O, evdev.KEY_P, evdev.KEY_Q, evdev.KEY_R,
		evdev.KEY_S, evdev.KEY_T, evdev.KEY_U, evdev.KEY_V, evdev.KEY_W, evdev.KEY_X,
		evdev.KEY_Y, evdev.KEY_Z,
	}
	for i, code := range letters {
		lower := rune('a' + i)
		addChar(code, lower, unicode.ToUpper(lower))
	}

	digits := []evdev.EvCode{
		evdev.KEY_1, evdev.KEY_2, evdev.KEY_3, evdev.KEY_4, evdev.KEY_5,
		evdev.KEY_6, evdev.KEY_7, evdev.KEY_8, evdev.KEY_9, evdev.KEY_0,
	}
	for i, shifted := range "!@#$%^&*()" {
		addChar(digits[i], rune("1234567890"[i]), shifted)
	}

	addChar(evdev.KEY_MINUS, '-', '_')
	addChar(evdev.KEY_EQUAL, '=', '+')
	addChar(evdev.KEY_LEFTBRACE, '[', '{')
	addChar(evdev.KEY_RIGHTBRACE, ']', '}')
	addChar(evdev.KEY_SEMICOLON, ';', ':')
	addChar(evdev.KEY_APOSTROPHE, '\'', '"')
	addChar(evdev.KEY_GRAVE, '`', '~')
	addChar(evdev.KEY_BACKSLASH, '\\', '|')
	addChar(evdev.KEY_COMMA, ',', '<')
	addChar(evdev.KEY_DOT, '.', '>')
	addChar(evdev.KEY_SLASH, '/', '?')
	charCodes[' '] = charCode{code: evdev.KEY_SPACE}
}

func addChar(code evdev.EvCode, plain, shifted rune) {
	charCodes[plain] = charCode{code: code}
	charCodes[shifted] = charCode{code: code, shift: true}
	plainChars[code] = plain
	shiftedChars[code] = shifted
}

// keyCode returns the evdev code for k and whether shift must be held.
func keyCode(k keys.Key) (evdev.EvCode, bool, bool) {
	if k.IsRune() {
		c, ok := charCodes[k.Rune()]
		return c.code, c.shift, ok
	}
	code, ok := namedCodes[k.Name()]
	return code, false, ok
}

// tokenForCode returns the recorded token for an evdev key code given the
// current shift state. Codes without a mapping become raw code tokens.
func tokenForCode(code evdev.EvCode, shifted bool) event.KeyToken {
	if shifted {
		if r, ok := shiftedChars[code]; ok {
			return event.CharToken(r)
		}
	}
	if r, ok := plainChars[code]; ok {
		return event.CharToken(r)
	}
	if name, ok := codeNames[code]; ok {
		return event.SpecialToken(name)
	}
	return event.CodeToken(int(code))
}

func isShiftCode(code evdev.EvCode) bool {
	return code == evdev.KEY_LEFTSHIFT || code == evdev.KEY_RIGHTSHIFT
}

func buttonForCode(code evdev.EvCode) (event.Button, bool) {
	switch code {
	case evdev.BTN_LEFT:
		return event.ButtonLeft, true
	case evdev.BTN_RIGHT:
		return event.ButtonRight, true
	case evdev.BTN_MIDDLE:
		return event.ButtonMiddle, true
	}
	return "", false
}
