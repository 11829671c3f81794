//go:build linux

package device

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"slaunch/internal/logging"
)

// OpenController opens the replay backend named in opts. BackendAuto tries
// X11 when a display is available and falls back to uinput.
func OpenController(opts Options, logger *slog.Logger) (Controller, error) {
	if logger == nil {
		logger = logging.Default().WithComponent("device").Logger
	}
	switch opts.Backend {
	case BackendX11:
		x, err := OpenX11(opts.Display)
		if err != nil {
			return nil, err
		}
		return x, nil
	case BackendUinput:
		u, err := OpenUinput(opts.UinputPath, opts.ScreenWidth, opts.ScreenHeight)
		if err != nil {
			return nil, err
		}
		return u, nil
	case BackendAuto, "":
		var x11Err error
		if opts.Display != "" || os.Getenv("DISPLAY") != "" {
			x, err := OpenX11(opts.Display)
			if err == nil {
				logger.Debug("using X11 replay backend")
				return x, nil
			}
			x11Err = err
			logger.Warn("X11 backend unavailable, trying uinput", "error", err)
		}
		u, err := OpenUinput(opts.UinputPath, opts.ScreenWidth, opts.ScreenHeight)
		if err != nil {
			return nil, errors.Join(x11Err, err)
		}
		logger.Debug("using uinput replay backend")
		return u, nil
	}
	return nil, fmt.Errorf("unknown device backend %q", opts.Backend)
}

// OpenPointer returns an X11 pointer locator, or nil when no display is
// reachable. Capture then tracks the pointer from relative motion.
func OpenPointer(opts Options, logger *slog.Logger) (Pointer, func() error) {
	if opts.Display == "" && os.Getenv("DISPLAY") == "" {
		return nil, func() error { return nil }
	}
	x, err := OpenX11(opts.Display)
	if err != nil {
		if logger != nil {
			logger.Debug("no X11 pointer, tracking relative motion", "error", err)
		}
		return nil, func() error { return nil }
	}
	return x, x.Close
}
