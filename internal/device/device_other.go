//go:build !linux

package device

import (
	"log/slog"

	"slaunch/internal/capture"
)

// OpenController is not available on this platform.
func OpenController(Options, *slog.Logger) (Controller, error) {
	return nil, ErrUnsupported
}

// OpenPointer is not available on this platform.
func OpenPointer(Options, *slog.Logger) (Pointer, func() error) {
	return nil, func() error { return nil }
}

// ListDevices is not available on this platform.
func ListDevices() ([]Info, error) {
	return nil, ErrUnsupported
}

// EvdevSource is a placeholder whose Attach always fails.
type EvdevSource struct{}

// NewEvdevSource returns a source that cannot attach.
func NewEvdevSource(Options, Pointer, *slog.Logger) *EvdevSource {
	return &EvdevSource{}
}

// Attach reports ErrUnsupported.
func (*EvdevSource) Attach(capture.Handler) error {
	return ErrUnsupported
}

// Detach does nothing.
func (*EvdevSource) Detach() error {
	return nil
}
