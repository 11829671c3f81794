// Package capture records global input into event buffers.
//
// A Recorder owns one recording session at a time. Events arrive from a
// Source on the source's own goroutines and are appended under a mutex. A
// monitor goroutine watches for the stop gesture: the primary mouse button
// and a stop modifier held together for StopHold. When the session ends the
// raw capture is finalized (see Finalize).
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slaunch/internal/event"
	"slaunch/internal/logging"
)

var (
	// ErrCaptureUnavailable is returned when the input source cannot be
	// attached. It wraps the source's error.
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("recording already in progress")

	// ErrNotRecording is returned by Wait when there is no session to wait for.
	ErrNotRecording = errors.New("not recording")
)

// Handler receives captured events.
type Handler func(event.Event)

// Source is an OS-level input listener. Attach starts delivering events to
// h until Detach is called. Events should carry their capture time; events
// with a zero time are stamped on arrival.
type Source interface {
	Attach(h Handler) error
	Detach() error
}

type session struct {
	armed    bool
	stopping bool
	raw      event.Buffer
	state    State
	dropped  bool

	// gestureSince is when the stop gesture became held; zero when it is not.
	gestureSince time.Time

	stop        chan struct{}
	monitorDone chan struct{}
	done        chan struct{}
	result      event.Buffer
}

// Recorder captures input from a Source into finalized event buffers.
// A Recorder has no process-wide state, but the devices behind a Source
// usually do; running two recorders over the same devices is the caller's
// concern.
type Recorder struct {
	src    Source
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	session *session
	last    *session
}

// NewRecorder returns a Recorder reading from src.
func NewRecorder(src Source, opts Options, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default().WithComponent("capture").Logger
	}
	return &Recorder{
		src:    src,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Start begins a new session. Cancelling ctx ends the session as if Stop had
// been called.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		r.logger.Warn("start ignored: recording already in progress")
		return ErrAlreadyRecording
	}
	s := &session{
		state:       NewState(),
		stop:        make(chan struct{}),
		monitorDone: make(chan struct{}),
		done:        make(chan struct{}),
	}
	r.session = s
	r.mu.Unlock()

	if err := r.src.Attach(r.handle); err != nil {
		r.mu.Lock()
		r.session = nil
		r.mu.Unlock()
		close(s.done)
		r.logger.Error("failed to attach input listeners", "error", err)
		return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	r.mu.Lock()
	s.armed = true
	r.last = s
	r.mu.Unlock()

	go r.monitor(ctx, s)
	r.logger.Info("recording started",
		"stop_hold", r.opts.StopHold,
		"stop_button", r.opts.StopButton.String())
	return nil
}

// Stop ends the current session and returns its finalized buffer. Without
// an active session it logs and returns an empty buffer.
func (r *Recorder) Stop() event.Buffer {
	r.mu.Lock()
	s := r.session
	active := s != nil && (s.armed || s.stopping)
	r.mu.Unlock()
	if !active {
		r.logger.Info("stop ignored: not recording")
		return event.Buffer{}
	}
	buf, _ := r.stop(s, false)
	return buf
}

// Wait blocks until the active or most recent session has ended and returns
// its buffer.
func (r *Recorder) Wait(ctx context.Context) (event.Buffer, error) {
	r.mu.Lock()
	s := r.session
	if s == nil {
		s = r.last
	}
	r.mu.Unlock()
	if s == nil {
		return nil, ErrNotRecording
	}
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsRecording reports whether a session is armed.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.armed
}

func (r *Recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil || !s.armed {
		return
	}
	now := r.now()
	if e.Time == 0 {
		e.Time = seconds(now)
	}

	s.state.Track(e)
	if r.gestureActive(s) {
		if s.gestureSince.IsZero() {
			s.gestureSince = now
		}
	} else {
		s.gestureSince = time.Time{}
	}

	if r.opts.MaxEvents > 0 && len(s.raw) >= r.opts.MaxEvents {
		if !s.dropped {
			s.dropped = true
			r.logger.Warn("event buffer full, dropping further events", "max_events", r.opts.MaxEvents)
		}
		return
	}
	s.raw = append(s.raw, e)
}

// gestureActive must be called with r.mu held.
func (r *Recorder) gestureActive(s *session) bool {
	if _, ok := s.state.HeldButtons[r.opts.StopButton]; !ok {
		return false
	}
	for _, k := range r.opts.StopModifiers {
		if _, ok := s.state.HeldKeys[k]; ok {
			return true
		}
	}
	return false
}

func (r *Recorder) gestureHeld(s *session) bool {
	r.mu.Lock()
	since := s.gestureSince
	r.mu.Unlock()
	return !since.IsZero() && r.now().Sub(since) >= r.opts.StopHold
}

func (r *Recorder) monitor(ctx context.Context, s *session) {
	defer close(s.monitorDone)
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			if _, ok := r.stop(s, true); ok {
				r.logger.Info("recording context cancelled")
			}
			return
		case <-ticker.C:
			if !r.gestureHeld(s) {
				continue
			}
			r.logger.Info("stop gesture detected")
			buf, ok := r.stop(s, true)
			if ok && r.opts.OnAutoStop != nil {
				r.opts.OnAutoStop(buf)
			}
			return
		}
	}
}

// stop ends session s and reports whether this call did the work. A later
// caller waits for the first one's result, except the monitor, which just
// returns.
func (r *Recorder) stop(s *session, fromMonitor bool) (event.Buffer, bool) {
	r.mu.Lock()
	if s.stopping {
		r.mu.Unlock()
		if fromMonitor {
			return nil, false
		}
		<-s.done
		return s.result, false
	}
	s.stopping = true
	s.armed = false
	close(s.stop)
	r.mu.Unlock()

	if err := r.src.Detach(); err != nil {
		r.logger.Warn("failed to detach input listeners", "error", err)
	}

	if !fromMonitor {
		timer := time.NewTimer(r.opts.JoinTimeout)
		select {
		case <-s.monitorDone:
		case <-timer.C:
			r.logger.Warn("monitor did not exit in time", "timeout", r.opts.JoinTimeout)
		}
		timer.Stop()
	}

	r.mu.Lock()
	raw := s.raw
	st := s.state.clone()
	now := seconds(r.now())
	r.mu.Unlock()

	buf := Finalize(raw, st, now, r.opts)

	r.mu.Lock()
	s.result = buf
	if r.session == s {
		r.session = nil
	}
	r.mu.Unlock()
	close(s.done)

	r.logger.Info("recording stopped", "raw_events", len(raw), "events", len(buf))
	return buf, true
}
