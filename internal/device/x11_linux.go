//go:build linux

package device

import (
	"fmt"
	"math"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"

	"slaunch/internal/event"
	"slaunch/internal/keys"
)

var namedKeysyms = map[string]string{
	"alt":               "Alt_L",
	"alt_l":             "Alt_L",
	"alt_r":             "Alt_R",
	"alt_gr":            "ISO_Level3_Shift",
	"backspace":         "BackSpace",
	"caps_lock":         "Caps_Lock",
	"cmd":               "Super_L",
	"cmd_l":             "Super_L",
	"cmd_r":             "Super_R",
	"ctrl":              "Control_L",
	"ctrl_l":            "Control_L",
	"ctrl_r":            "Control_R",
	"delete":            "Delete",
	"down":              "Down",
	"end":               "End",
	"enter":             "Return",
	"esc":               "Escape",
	"home":              "Home",
	"insert":            "Insert",
	"left":              "Left",
	"menu":              "Menu",
	"num_lock":          "Num_Lock",
	"page_down":         "Page_Down",
	"page_up":           "Page_Up",
	"pause":             "Pause",
	"print_screen":      "Print",
	"right":             "Right",
	"scroll_lock":       "Scroll_Lock",
	"shift":             "Shift_L",
	"shift_l":           "Shift_L",
	"shift_r":           "Shift_R",
	"space":             "space",
	"tab":               "Tab",
	"up":                "Up",
	"media_play_pause":  "XF86AudioPlay",
	"media_volume_mute": "XF86AudioMute",
	"media_volume_down": "XF86AudioLowerVolume",
	"media_volume_up":   "XF86AudioRaiseVolume",
	"media_previous":    "XF86AudioPrev",
	"media_next":        "XF86AudioNext",
}

var punctKeysyms = map[rune]string{
	' ':  "space",
	'-':  "minus",
	'=':  "equal",
	'[':  "bracketleft",
	']':  "bracketright",
	';':  "semicolon",
	'\'': "apostrophe",
	'`':  "grave",
	'\\': "backslash",
	',':  "comma",
	'.':  "period",
	'/':  "slash",
}

// keysymFor returns the keysym name for k and whether shift must be held.
// Characters are typed through their US layout base key.
func keysymFor(k keys.Key) (string, bool, bool) {
	if !k.IsRune() {
		if sym, ok := namedKeysyms[k.Name()]; ok {
			return sym, false, true
		}
		var n int
		if _, err := fmt.Sscanf(k.Name(), "f%d", &n); err == nil && n >= 1 && n <= 20 {
			return fmt.Sprintf("F%d", n), false, true
		}
		return "", false, false
	}

	cc, ok := charCodes[k.Rune()]
	if !ok {
		return "", false, false
	}
	base, ok := plainChars[cc.code]
	if !ok {
		base = k.Rune()
	}
	if sym, ok := punctKeysyms[base]; ok {
		return sym, cc.shift, true
	}
	return string(base), cc.shift, true
}

// X11 replays input through the XTEST extension and reports the pointer
// position of the root window.
type X11 struct {
	xu   *xgbutil.XUtil
	conn *xgb.Conn
	root xproto.Window

	mu sync.Mutex
	// ownShift counts shift keys this controller holds down.
	ownShift int
}

// OpenX11 connects to display, or to $DISPLAY when display is empty.
func OpenX11(display string) (*X11, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display != "" {
		xu, err = xgbutil.NewConnDisplay(display)
	} else {
		xu, err = xgbutil.NewConn()
	}
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}
	conn := xu.Conn()
	if conn == nil {
		return nil, fmt.Errorf("failed to open X11 connection")
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("XTEST extension unavailable: %w", err)
	}
	keybind.Initialize(xu)

	return &X11{xu: xu, conn: conn, root: xu.RootWin()}, nil
}

// Position returns the pointer position on the root window.
func (x *X11) Position() (int, int, error) {
	reply, err := xproto.QueryPointer(x.conn, x.root).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(reply.RootX), int(reply.RootY), nil
}

func (x *X11) fake(typ, detail byte, px, py int16) error {
	return xtest.FakeInputChecked(
		x.conn,
		typ,
		detail,
		xproto.TimeCurrentTime,
		x.root,
		px,
		py,
		0,
	).Check()
}

// MoveTo warps the pointer to an absolute position.
func (x *X11) MoveTo(px, py int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fake(xproto.MotionNotify, 0, clampInt16(px), clampInt16(py))
}

func buttonIndex(b event.Button) (byte, error) {
	switch b {
	case event.ButtonLeft:
		return byte(xproto.ButtonIndex1), nil
	case event.ButtonMiddle:
		return byte(xproto.ButtonIndex2), nil
	case event.ButtonRight:
		return byte(xproto.ButtonIndex3), nil
	}
	return 0, fmt.Errorf("unsupported button %q", string(b))
}

// Press presses a mouse button.
func (x *X11) Press(b event.Button) error {
	idx, err := buttonIndex(b)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fake(xproto.ButtonPress, idx, 0, 0)
}

// Release releases a mouse button.
func (x *X11) Release(b event.Button) error {
	idx, err := buttonIndex(b)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fake(xproto.ButtonRelease, idx, 0, 0)
}

// Scroll clicks the wheel buttons once per unit of dx and dy.
func (x *X11) Scroll(dx, dy float64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.wheel(dy, 4, 5); err != nil {
		return err
	}
	return x.wheel(dx, 7, 6)
}

func (x *X11) wheel(delta float64, positive, negative byte) error {
	steps := int(math.Round(math.Abs(delta)))
	btn := positive
	if delta < 0 {
		btn = negative
	}
	for i := 0; i < steps; i++ {
		if err := x.fake(xproto.ButtonPress, btn, 0, 0); err != nil {
			return err
		}
		if err := x.fake(xproto.ButtonRelease, btn, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

func (x *X11) keycode(sym string) (xproto.Keycode, error) {
	codes := keybind.StrToKeycodes(x.xu, sym)
	if len(codes) == 0 {
		return 0, fmt.Errorf("%w: keysym %q", ErrUnmappedKey, sym)
	}
	return codes[0], nil
}

// KeyDown presses k, holding shift around it when the character needs it.
func (x *X11) KeyDown(k keys.Key) error {
	sym, shift, ok := keysymFor(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	code, err := x.keycode(sym)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if shift && x.ownShift == 0 {
		if err := x.shift(xproto.KeyPress); err != nil {
			return err
		}
		defer x.shift(xproto.KeyRelease)
	}
	if err := x.fake(xproto.KeyPress, byte(code), 0, 0); err != nil {
		return err
	}
	if k == keys.Shift || k == keys.ShiftL || k == keys.ShiftR {
		x.ownShift++
	}
	return nil
}

// KeyUp releases k.
func (x *X11) KeyUp(k keys.Key) error {
	sym, _, ok := keysymFor(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	code, err := x.keycode(sym)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.fake(xproto.KeyRelease, byte(code), 0, 0); err != nil {
		return err
	}
	if (k == keys.Shift || k == keys.ShiftL || k == keys.ShiftR) && x.ownShift > 0 {
		x.ownShift--
	}
	return nil
}

func (x *X11) shift(typ byte) error {
	code, err := x.keycode("Shift_L")
	if err != nil {
		return err
	}
	return x.fake(typ, byte(code), 0, 0)
}

// Close closes the X connection.
func (x *X11) Close() error {
	x.conn.Close()
	return nil
}

func clampInt16(v int) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}
