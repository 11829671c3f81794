package replay

import (
	"errors"

	"slaunch/internal/event"
	"slaunch/internal/keys"
)

// ErrControllerLost marks a controller error after which no further input
// can be delivered. It ends the replay instead of being skipped like other
// per-event failures.
var ErrControllerLost = errors.New("input controller lost")

// Controller drives synthetic input. Implementations need not be safe for
// concurrent use; a Replayer calls them from one goroutine at a time.
type Controller interface {
	MoveTo(x, y int) error
	Press(b event.Button) error
	Release(b event.Button) error
	Scroll(dx, dy float64) error
	KeyDown(k keys.Key) error
	KeyUp(k keys.Key) error
}
