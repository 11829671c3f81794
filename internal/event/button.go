package event

import "strings"

// Button names a mouse button. Unknown names are preserved so that a buffer
// survives a load/save cycle unchanged; they are rejected at replay time.
type Button string

// Mouse buttons.
const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

const buttonPrefix = "Button."

// ParseButton accepts "Button.left" as well as the bare "left".
func ParseButton(s string) Button {
	return Button(strings.TrimPrefix(strings.TrimSpace(s), buttonPrefix))
}

// Valid reports whether b is one of the three supported buttons.
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

// Format returns the wire form, e.g. "Button.left".
func (b Button) Format() string {
	return buttonPrefix + string(b)
}

func (b Button) String() string {
	return string(b)
}
