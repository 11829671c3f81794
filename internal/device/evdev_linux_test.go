//go:build linux

package device

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/event"
	"slaunch/internal/keys"
	"slaunch/internal/replay"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func attachedSource(t *testing.T) (*EvdevSource, *[]event.Event) {
	t.Helper()
	s := NewEvdevSource(DefaultOptions(), nil, quietLogger())
	var (
		mu  sync.Mutex
		got []event.Event
	)
	s.handler = func(e event.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}
	return s, &got
}

type keyController struct {
	calls []string
}

func (c *keyController) MoveTo(int, int) error         { return nil }
func (c *keyController) Press(event.Button) error      { return nil }
func (c *keyController) Release(event.Button) error    { return nil }
func (c *keyController) Scroll(float64, float64) error { return nil }

func (c *keyController) KeyDown(k keys.Key) error {
	c.calls = append(c.calls, "down "+k.String())
	return nil
}

func (c *keyController) KeyUp(k keys.Key) error {
	c.calls = append(c.calls, "up "+k.String())
	return nil
}

func TestHandleKeyShiftReleasedFirst(t *testing.T) {
	s, got := attachedSource(t)

	s.handleKey(evdev.KEY_LEFTSHIFT, 1, 0.0)
	s.handleKey(evdev.KEY_A, 1, 0.1)
	s.handleKey(evdev.KEY_A, 2, 0.15)
	s.handleKey(evdev.KEY_LEFTSHIFT, 0, 0.2)
	s.handleKey(evdev.KEY_A, 0, 0.3)

	require.Equal(t, event.Buffer{
		event.Press(event.SpecialToken("shift"), 0.0),
		event.Press(event.CharToken('A'), 0.1),
		event.Release(event.SpecialToken("shift"), 0.2),
		event.Release(event.CharToken('A'), 0.3),
	}, event.Buffer(*got))

	ctl := &keyController{}
	res, err := replay.New(ctl, replay.Options{}, quietLogger()).
		Replay(context.Background(), event.Buffer(*got), 1, 100)
	require.NoError(t, err)
	assert.Zero(t, res.Stats.Skipped)
	assert.Equal(t, []string{"down shift", "down A", "up shift", "up A"}, ctl.calls)
}

func TestHandleKeyPressAfterShiftRelease(t *testing.T) {
	s, got := attachedSource(t)

	s.handleKey(evdev.KEY_A, 1, 0.0)
	s.handleKey(evdev.KEY_RIGHTSHIFT, 1, 0.1)
	s.handleKey(evdev.KEY_A, 0, 0.2)
	s.handleKey(evdev.KEY_RIGHTSHIFT, 0, 0.3)
	s.handleKey(evdev.KEY_A, 1, 0.4)
	s.handleKey(evdev.KEY_A, 0, 0.5)

	toks := make([]event.KeyToken, len(*got))
	for i, e := range *got {
		toks[i] = e.Key
	}
	assert.Equal(t, []event.KeyToken{
		event.CharToken('a'),
		event.SpecialToken("shift_r"),
		event.CharToken('a'),
		event.SpecialToken("shift_r"),
		event.CharToken('a'),
		event.CharToken('a'),
	}, toks)
}

func TestHandleKeyButtons(t *testing.T) {
	s, got := attachedSource(t)
	s.x, s.y = 40, 50

	s.handleKey(evdev.BTN_RIGHT, 1, 1.0)
	s.handleKey(evdev.BTN_RIGHT, 0, 1.1)

	assert.Equal(t, event.Buffer{
		event.Click(40, 50, event.ButtonRight, true, 1.0),
		event.Click(40, 50, event.ButtonRight, false, 1.1),
	}, event.Buffer(*got))
}
