//go:build linux

package device

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bendahl/uinput"

	"slaunch/internal/event"
	"slaunch/internal/keys"
)

const uinputName = "slaunch-replay"

// Uinput replays input through virtual kernel devices: a keyboard, a
// relative mouse for buttons and wheel, and an absolute touch pad for
// pointer positioning. It works without a display server.
type Uinput struct {
	kb    uinput.Keyboard
	mouse uinput.Mouse
	pad   uinput.TouchPad

	mu       sync.Mutex
	ownShift int
	lost     bool
}

// OpenUinput creates the virtual devices at path. The touch pad spans a
// width by height screen.
func OpenUinput(path string, width, height int) (*Uinput, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid screen size %dx%d", width, height)
	}
	kb, err := uinput.CreateKeyboard(path, []byte(uinputName+"-keyboard"))
	if err != nil {
		return nil, fmt.Errorf("create uinput keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse(path, []byte(uinputName+"-mouse"))
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("create uinput mouse: %w", err)
	}
	pad, err := uinput.CreateTouchPad(path, []byte(uinputName+"-pointer"), 0, int32(width-1), 0, int32(height-1))
	if err != nil {
		kb.Close()
		mouse.Close()
		return nil, fmt.Errorf("create uinput touch pad: %w", err)
	}
	return &Uinput{kb: kb, mouse: mouse, pad: pad}, nil
}

// check converts write errors that mean the device is gone into ErrDeviceLost.
// Must be called with u.mu held.
func (u *Uinput) check(err error) error {
	if err == nil {
		return nil
	}
	if isDeviceClosedError(err) {
		u.lost = true
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	return err
}

func (u *Uinput) ready() error {
	if u.lost {
		return ErrDeviceLost
	}
	return nil
}

// MoveTo positions the pointer.
func (u *Uinput) MoveTo(x, y int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}
	return u.check(u.pad.MoveTo(int32(x), int32(y)))
}

// Press presses a mouse button.
func (u *Uinput) Press(b event.Button) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}
	switch b {
	case event.ButtonLeft:
		return u.check(u.mouse.LeftPress())
	case event.ButtonRight:
		return u.check(u.mouse.RightPress())
	case event.ButtonMiddle:
		return u.check(u.mouse.MiddlePress())
	}
	return fmt.Errorf("unsupported button %q", string(b))
}

// Release releases a mouse button.
func (u *Uinput) Release(b event.Button) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}
	switch b {
	case event.ButtonLeft:
		return u.check(u.mouse.LeftRelease())
	case event.ButtonRight:
		return u.check(u.mouse.RightRelease())
	case event.ButtonMiddle:
		return u.check(u.mouse.MiddleRelease())
	}
	return fmt.Errorf("unsupported button %q", string(b))
}

// Scroll moves the wheels by the rounded deltas.
func (u *Uinput) Scroll(dx, dy float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}
	if v := int32(math.Round(dy)); v != 0 {
		if err := u.check(u.mouse.Wheel(false, v)); err != nil {
			return err
		}
	}
	if v := int32(math.Round(dx)); v != 0 {
		return u.check(u.mouse.Wheel(true, v))
	}
	return nil
}

// KeyDown presses k, holding shift around it when the character needs it.
func (u *Uinput) KeyDown(k keys.Key) error {
	code, shift, ok := keyCode(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}

	if shift && u.ownShift == 0 {
		if err := u.check(u.kb.KeyDown(uinput.KeyLeftshift)); err != nil {
			return err
		}
		defer func() { _ = u.check(u.kb.KeyUp(uinput.KeyLeftshift)) }()
	}
	if err := u.check(u.kb.KeyDown(int(code))); err != nil {
		return err
	}
	if isShiftCode(code) {
		u.ownShift++
	}
	return nil
}

// KeyUp releases k.
func (u *Uinput) KeyUp(k keys.Key) error {
	code, _, ok := keyCode(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.ready(); err != nil {
		return err
	}
	if err := u.check(u.kb.KeyUp(int(code))); err != nil {
		return err
	}
	if isShiftCode(code) && u.ownShift > 0 {
		u.ownShift--
	}
	return nil
}

// Close destroys the virtual devices.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return errors.Join(u.kb.Close(), u.mouse.Close(), u.pad.Close())
}
