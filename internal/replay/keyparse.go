package replay

import (
	"errors"
	"fmt"

	"slaunch/internal/event"
	"slaunch/internal/keys"
)

var (
	// ErrUnresolvedToken is returned when a recorded key token does not map
	// to a key this machine can press.
	ErrUnresolvedToken = errors.New("unresolved key token")

	// ErrNotHeld is reported when a recording releases input that this
	// replay never pressed.
	ErrNotHeld = errors.New("release of input not held by this replay")
)

// ParseKey resolves a recorded token to a key. Raw virtual key codes are
// never guessed: their meaning depends on the recording machine's layout.
func ParseKey(tok event.KeyToken) (keys.Key, error) {
	switch tok.Kind {
	case event.TokenSpecial:
		if k, ok := keys.FromName(tok.Name); ok {
			return k, nil
		}
		return keys.Key{}, fmt.Errorf("%w: unknown special key %q", ErrUnresolvedToken, tok.Name)
	case event.TokenChar:
		if k, ok := keys.FromRune(tok.Char); ok {
			return k, nil
		}
		return keys.Key{}, fmt.Errorf("%w: unprintable character %U", ErrUnresolvedToken, tok.Char)
	case event.TokenCode:
		return keys.Key{}, fmt.Errorf("%w: virtual key code %d is unreliable", ErrUnresolvedToken, tok.Code)
	default:
		return keys.Key{}, fmt.Errorf("%w: %q", ErrUnresolvedToken, tok.Raw)
	}
}
