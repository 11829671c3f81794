//go:build linux

package device

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"slaunch/internal/capture"
	"slaunch/internal/event"
	"slaunch/internal/logging"
)

// EvdevSource is a capture.Source reading evdev nodes. Relative motion is
// turned into absolute positions with the Pointer when one is set, otherwise
// by accumulating deltas inside the configured screen.
type EvdevSource struct {
	paths   []string
	pointer Pointer
	width   int
	height  int
	logger  *slog.Logger

	mu      sync.Mutex
	devices []*evdev.InputDevice
	handler capture.Handler
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Input state shared by all devices.
	stateMu sync.Mutex
	x, y    int
	shifts  map[evdev.EvCode]bool
	// pressed holds the token each down key was recorded with, so its
	// release matches even when shift changed in between.
	pressed map[evdev.EvCode]event.KeyToken
}

// NewEvdevSource returns a source over opts.CaptureDevices. pointer may be nil.
func NewEvdevSource(opts Options, pointer Pointer, logger *slog.Logger) *EvdevSource {
	if logger == nil {
		logger = logging.Default().WithComponent("evdev").Logger
	}
	return &EvdevSource{
		paths:   opts.CaptureDevices,
		pointer: pointer,
		width:   opts.ScreenWidth,
		height:  opts.ScreenHeight,
		logger:  logger,
		shifts:  make(map[evdev.EvCode]bool),
		pressed: make(map[evdev.EvCode]event.KeyToken),
	}
}

// Attach opens the devices and starts one reader per device.
func (s *EvdevSource) Attach(h capture.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.devices != nil {
		return errors.New("evdev source already attached")
	}

	devices, err := openCaptureDevices(s.paths)
	if err != nil {
		return err
	}

	s.stateMu.Lock()
	s.shifts = make(map[evdev.EvCode]bool)
	s.pressed = make(map[evdev.EvCode]event.KeyToken)
	if s.pointer != nil {
		if x, y, err := s.pointer.Position(); err == nil {
			s.x, s.y = x, y
		}
	}
	s.stateMu.Unlock()

	s.devices = devices
	s.handler = h
	s.stopCh = make(chan struct{})
	for _, dev := range devices {
		name, _ := dev.Name()
		s.logger.Debug("capturing from device", "path", dev.Path(), "name", name)
		s.wg.Add(1)
		go s.readLoop(dev, s.stopCh)
	}
	return nil
}

// Detach stops the readers and closes the devices.
func (s *EvdevSource) Detach() error {
	s.mu.Lock()
	devices, stopCh := s.devices, s.stopCh
	s.devices = nil
	s.handler = nil
	s.mu.Unlock()
	if devices == nil {
		return nil
	}

	close(stopCh)
	var errs []error
	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", dev.Path(), err))
		}
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

func (s *EvdevSource) readLoop(dev *evdev.InputDevice, stopCh <-chan struct{}) {
	defer s.wg.Done()

	path := dev.Path()
	var dx, dy int32
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		ev, err := dev.ReadOne()
		if err != nil {
			if isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !sleepUntilStop(stopCh, 5*time.Millisecond) {
					return
				}
				continue
			}
			s.logger.Warn("read failed", "path", path, "error", err)
			if !sleepUntilStop(stopCh, 100*time.Millisecond) {
				return
			}
			continue
		}
		if ev == nil {
			continue
		}

		t := float64(ev.Time.Sec) + float64(ev.Time.Usec)/1e6
		switch ev.Type {
		case evdev.EV_REL:
			switch ev.Code {
			case evdev.REL_X:
				dx += ev.Value
			case evdev.REL_Y:
				dy += ev.Value
			case evdev.REL_WHEEL:
				x, y := s.position()
				s.emit(event.Scroll(x, y, 0, float64(ev.Value), t))
			case evdev.REL_HWHEEL:
				x, y := s.position()
				s.emit(event.Scroll(x, y, float64(ev.Value), 0, t))
			}
		case evdev.EV_SYN:
			if ev.Code == evdev.SYN_REPORT && (dx != 0 || dy != 0) {
				x, y := s.move(dx, dy)
				dx, dy = 0, 0
				s.emit(event.Move(x, y, t))
			}
		case evdev.EV_KEY:
			s.handleKey(ev.Code, ev.Value, t)
		}
	}
}

func (s *EvdevSource) handleKey(code evdev.EvCode, value int32, t float64) {
	// 2 is autorepeat.
	if value == 2 {
		return
	}
	pressed := value == 1

	if b, ok := buttonForCode(code); ok {
		x, y := s.position()
		s.emit(event.Click(x, y, b, pressed, t))
		return
	}

	s.stateMu.Lock()
	if isShiftCode(code) {
		if pressed {
			s.shifts[code] = true
		} else {
			delete(s.shifts, code)
		}
	}
	var tok event.KeyToken
	if pressed {
		tok = tokenForCode(code, len(s.shifts) > 0)
		s.pressed[code] = tok
	} else if held, ok := s.pressed[code]; ok {
		tok = held
		delete(s.pressed, code)
	} else {
		tok = tokenForCode(code, len(s.shifts) > 0)
	}
	s.stateMu.Unlock()

	if pressed {
		s.emit(event.Press(tok, t))
	} else {
		s.emit(event.Release(tok, t))
	}
}

// move applies a relative motion and returns the new absolute position.
func (s *EvdevSource) move(dx, dy int32) (int, int) {
	if s.pointer != nil {
		if x, y, err := s.pointer.Position(); err == nil {
			s.stateMu.Lock()
			s.x, s.y = x, y
			s.stateMu.Unlock()
			return x, y
		}
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.x = clamp(s.x+int(dx), 0, s.width-1)
	s.y = clamp(s.y+int(dy), 0, s.height-1)
	return s.x, s.y
}

func (s *EvdevSource) position() (int, int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.x, s.y
}

func (s *EvdevSource) emit(e event.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(e)
	}
}

// ListDevices describes every evdev node this process can open.
func ListDevices() ([]Info, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	out := make([]Info, 0, len(paths))
	for _, p := range paths {
		dev, err := openInputDevice(p.Path)
		if err != nil {
			continue
		}
		name := p.Name
		if actual, err := dev.Name(); err == nil && actual != "" {
			name = actual
		}
		out = append(out, Info{
			Path:      p.Path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
			IsPointer: deviceIsPointer(dev),
			HasKeys:   len(dev.CapableEvents(evdev.EV_KEY)) > 0,
		})
		_ = dev.Close()
	}
	return out, nil
}

func openCaptureDevices(paths []string) ([]*evdev.InputDevice, error) {
	if len(paths) > 0 {
		devices := make([]*evdev.InputDevice, 0, len(paths))
		for _, path := range paths {
			dev, err := openInputDevice(path)
			if err != nil {
				closeInputDevices(devices)
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
			if err := dev.NonBlock(); err != nil {
				_ = dev.Close()
				closeInputDevices(devices)
				return nil, fmt.Errorf("set nonblocking mode for %s: %w", path, err)
			}
			devices = append(devices, dev)
		}
		return devices, nil
	}

	found, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].Path < found[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(found))
	for _, p := range found {
		dev, err := openInputDevice(p.Path)
		if err != nil {
			continue
		}
		name := p.Name
		if actual, err := dev.Name(); err == nil && actual != "" {
			name = actual
		}
		useful := len(dev.CapableEvents(evdev.EV_KEY)) > 0 || deviceIsPointer(dev)
		if deviceIsVirtual(dev, name) || !useful {
			_ = dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return nil, errors.New("no readable input devices found; check permissions on /dev/input")
	}
	return devices, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func closeInputDevices(devices []*evdev.InputDevice) {
	for _, dev := range devices {
		_ = dev.Close()
	}
}

func deviceIsVirtual(dev *evdev.InputDevice, name string) bool {
	id, err := dev.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool", "slaunch"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func deviceIsPointer(dev *evdev.InputDevice) bool {
	var hasRelX, hasRelY bool
	for _, code := range dev.CapableEvents(evdev.EV_REL) {
		switch code {
		case evdev.REL_X:
			hasRelX = true
		case evdev.REL_Y:
			hasRelY = true
		}
	}
	return hasRelX && hasRelY
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENODEV) || errors.Is(err, os.ErrClosed)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func sleepUntilStop(stopCh <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return v
	}
	return min(max(v, lo), hi)
}
