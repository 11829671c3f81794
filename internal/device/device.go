// Package device connects the recorder and replayer to real input devices.
//
// Capture reads kernel input events from evdev nodes. Replay drives either
// the X server through the XTEST extension or a virtual uinput device. Input
// devices are a process-wide resource: two recorders reading the same evdev
// nodes both see every event, and two replays share one pointer.
package device

import (
	"errors"
	"fmt"

	"slaunch/internal/replay"
)

// Backend selects the replay implementation.
type Backend string

// Backends.
const (
	BackendAuto   Backend = "auto"
	BackendX11    Backend = "x11"
	BackendUinput Backend = "uinput"
)

var (
	// ErrDeviceLost is returned once a device can no longer deliver input.
	// It wraps replay.ErrControllerLost so a replay ends on it.
	ErrDeviceLost = fmt.Errorf("device lost: %w", replay.ErrControllerLost)

	// ErrUnsupported is returned on platforms without a backend.
	ErrUnsupported = errors.New("input devices are not supported on this platform")

	// ErrUnmappedKey is returned for keys the backend has no code for.
	ErrUnmappedKey = errors.New("key has no device mapping")
)

// Options selects and configures devices.
type Options struct {
	Backend      Backend
	UinputPath   string
	Display      string
	ScreenWidth  int
	ScreenHeight int

	// CaptureDevices restricts capture to these evdev paths. Empty means
	// every physical device with key, button or relative axes.
	CaptureDevices []string
}

// DefaultOptions returns the standard device settings.
func DefaultOptions() Options {
	return Options{
		Backend:      BackendAuto,
		UinputPath:   "/dev/uinput",
		ScreenWidth:  1920,
		ScreenHeight: 1080,
	}
}

// Info describes an evdev node.
type Info struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
	HasKeys   bool
}

// Pointer reports the absolute pointer position.
type Pointer interface {
	Position() (x, y int, err error)
}

// Controller is a replay controller holding an open device.
type Controller interface {
	replay.Controller
	Close() error
}
