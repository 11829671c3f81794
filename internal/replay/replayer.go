// Package replay plays event buffers back through a synthetic input
// controller.
//
// Playback reconstructs the recording's relative timing against the wall
// clock, scaled by a speed factor. Cancellation is the job's context: it is
// checked before every event, before every action, and wakes any wait early.
// Whatever a sequence pressed is released when it ends, however it ends, and
// nothing it did not press is ever released.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"slaunch/internal/event"
	"slaunch/internal/keys"
	"slaunch/internal/logging"
)

// Infinite is the repeat count meaning "until cancelled".
const Infinite = -1

// ErrInvalidJob is returned for a non-positive speed or an invalid repeat
// count.
var ErrInvalidJob = errors.New("invalid replay job")

// State is the lifecycle state of a replay.
type State int

// Replay states.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Stats counts per-event outcomes.
type Stats struct {
	Executed int
	Skipped  int
	Failed   int
}

func (s *Stats) add(o Stats) {
	s.Executed += o.Executed
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Result summarizes a finished replay.
type Result struct {
	State       State
	Repetitions int
	Stats       Stats
}

// Failure is returned when an error escapes a repetition.
type Failure struct {
	Repetition int
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("replay failed in repetition %d: %v", f.Repetition, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Options tunes playback. Zero fields take the DefaultOptions value.
type Options struct {
	// InfinitePause separates repetitions of an infinite replay.
	InfinitePause time.Duration

	// RepeatPause separates repetitions of a counted replay.
	RepeatPause time.Duration

	// MaxWait caps a single inter-event wait. Time cut from a wait is also
	// cut from every later target so spacing after the gap is preserved.
	// Zero or negative disables the cap.
	MaxWait time.Duration
}

// DefaultOptions returns the standard playback settings.
func DefaultOptions() Options {
	return Options{
		InfinitePause: 100 * time.Millisecond,
		RepeatPause:   500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InfinitePause <= 0 {
		o.InfinitePause = d.InfinitePause
	}
	if o.RepeatPause <= 0 {
		o.RepeatPause = d.RepeatPause
	}
	return o
}

// Replayer plays buffers through a Controller. A Replayer may run several
// replays concurrently only if its Controller tolerates it.
type Replayer struct {
	ctl    Controller
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Replayer driving ctl.
func New(ctl Controller, opts Options, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = logging.Default().WithComponent("replay").Logger
	}
	return &Replayer{
		ctl:    ctl,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Replay plays buf repeat times (or until cancelled for Infinite) at the
// given speed. Cancellation is not an error: the result state says
// StateCancelled and err is nil. An error escaping a repetition ends the
// replay in StateFailed and is returned as a *Failure.
func (r *Replayer) Replay(ctx context.Context, buf event.Buffer, repeat int, speed float64) (Result, error) {
	res := Result{State: StateIdle}
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return res, fmt.Errorf("%w: speed %v", ErrInvalidJob, speed)
	}
	if repeat == 0 || repeat < Infinite {
		return res, fmt.Errorf("%w: repeat count %d", ErrInvalidJob, repeat)
	}
	if len(buf) == 0 {
		r.logger.Warn("nothing to replay: empty buffer")
		res.State = StateCompleted
		return res, nil
	}

	res.State = StateRunning
	r.logger.Info("replay started", "events", len(buf), "repeat", repeat, "speed", speed)

	pause := r.opts.RepeatPause
	if repeat == Infinite {
		pause = r.opts.InfinitePause
	}

	for i := 0; repeat == Infinite || i < repeat; i++ {
		if ctx.Err() != nil {
			return r.cancelled(res)
		}

		stats, err := r.playOnce(ctx, buf, speed)
		res.Stats.add(stats)
		if err != nil {
			res.State = StateFailed
			f := &Failure{Repetition: i + 1, Err: err}
			r.logger.Error("replay failed", "repetition", i+1, "error", err)
			return res, f
		}
		if ctx.Err() != nil {
			return r.cancelled(res)
		}
		res.Repetitions++

		if repeat != Infinite && i == repeat-1 {
			break
		}
		if !sleep(ctx, pause) {
			return r.cancelled(res)
		}
	}

	res.State = StateCompleted
	r.logger.Info("replay completed",
		"repetitions", res.Repetitions,
		"executed", res.Stats.Executed,
		"skipped", res.Stats.Skipped,
		"failed", res.Stats.Failed)
	return res, nil
}

func (r *Replayer) cancelled(res Result) (Result, error) {
	res.State = StateCancelled
	r.logger.Info("replay cancelled", "repetitions", res.Repetitions)
	return res, nil
}

// playOnce runs one repetition and converts a panic into an error.
func (r *Replayer) playOnce(ctx context.Context, buf event.Buffer, speed float64) (stats Stats, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during playback: %v", p)
		}
	}()
	return r.playSequence(ctx, buf, speed)
}

// held is the input pressed by one sequence and not yet released.
type held struct {
	keys    map[event.KeyToken]keys.Key
	buttons map[event.Button]struct{}
}

func (h *held) empty() bool {
	return len(h.keys) == 0 && len(h.buttons) == 0
}

// playSequence plays buf once. It returns early and without error when ctx
// is cancelled. Only an ErrControllerLost escapes as an error; every other
// action failure is logged and counted.
func (r *Replayer) playSequence(ctx context.Context, buf event.Buffer, speed float64) (stats Stats, err error) {
	h := &held{
		keys:    make(map[event.KeyToken]keys.Key),
		buttons: make(map[event.Button]struct{}),
	}
	defer r.releaseAll(h, &stats)

	if len(buf) == 0 {
		return stats, nil
	}
	t0 := buf[0].Time
	w0 := r.now()
	var cut time.Duration

	for _, e := range buf {
		if ctx.Err() != nil {
			return stats, nil
		}

		offset := time.Duration((e.Time - t0) / speed * float64(time.Second))
		wait := w0.Add(offset - cut).Sub(r.now())
		if r.opts.MaxWait > 0 && wait > r.opts.MaxWait {
			cut += wait - r.opts.MaxWait
			wait = r.opts.MaxWait
		}
		if wait > 0 && !sleep(ctx, wait) {
			return stats, nil
		}
		if ctx.Err() != nil {
			return stats, nil
		}

		if err := r.dispatch(e, h, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// dispatch performs one event's action. It returns an error only when the
// controller is lost.
func (r *Replayer) dispatch(e event.Event, h *held, stats *Stats) error {
	var err error
	switch e.Kind {
	case event.KindMouseMove:
		err = r.ctl.MoveTo(e.X, e.Y)

	case event.KindMouseClick:
		if !e.Button.Valid() {
			r.logger.Warn("skipping click with unknown button", "button", e.Button.Format())
			stats.Skipped++
			return nil
		}
		if e.Pressed {
			if err = r.ctl.Press(e.Button); err == nil {
				h.buttons[e.Button] = struct{}{}
			}
			break
		}
		if _, ok := h.buttons[e.Button]; !ok {
			r.logger.Warn("skipping button release", "button", e.Button.String(), "error", ErrNotHeld)
			stats.Skipped++
			return nil
		}
		delete(h.buttons, e.Button)
		err = r.ctl.Release(e.Button)

	case event.KindMouseScroll:
		err = r.ctl.Scroll(e.DX, e.DY)

	case event.KindKeyPress:
		k, perr := ParseKey(e.Key)
		if perr != nil {
			r.logger.Warn("skipping key press", "token", e.Key.Format(), "error", perr)
			stats.Skipped++
			return nil
		}
		if err = r.ctl.KeyDown(k); err == nil {
			h.keys[e.Key] = k
		}

	case event.KindKeyRelease:
		if _, perr := ParseKey(e.Key); perr != nil {
			r.logger.Warn("skipping key release", "token", e.Key.Format(), "error", perr)
			stats.Skipped++
			return nil
		}
		k, ok := h.keys[e.Key]
		if !ok {
			r.logger.Warn("skipping key release", "token", e.Key.Format(), "error", ErrNotHeld)
			stats.Skipped++
			return nil
		}
		delete(h.keys, e.Key)
		err = r.ctl.KeyUp(k)

	case event.KindVoid:
		return nil

	default:
		r.logger.Warn("skipping event of unknown kind", "kind", string(e.Kind))
		stats.Skipped++
		return nil
	}

	if err != nil {
		stats.Failed++
		if errors.Is(err, ErrControllerLost) {
			return err
		}
		r.logger.Warn("event action failed", "kind", string(e.Kind), "error", err)
		return nil
	}
	stats.Executed++
	return nil
}

// releaseAll releases everything h still holds. A failure or panic on one
// release does not prevent the others.
func (r *Replayer) releaseAll(h *held, stats *Stats) {
	if h.empty() {
		return
	}
	buttons := make([]event.Button, 0, len(h.buttons))
	for b := range h.buttons {
		buttons = append(buttons, b)
	}
	sort.Slice(buttons, func(i, j int) bool { return buttons[i] < buttons[j] })
	for _, b := range buttons {
		delete(h.buttons, b)
		if err := guard(func() error { return r.ctl.Release(b) }); err != nil {
			stats.Failed++
			r.logger.Warn("cleanup release failed", "button", b.String(), "error", err)
		}
	}

	tokens := make([]event.KeyToken, 0, len(h.keys))
	for tok := range h.keys {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Format() < tokens[j].Format() })
	for _, tok := range tokens {
		k := h.keys[tok]
		delete(h.keys, tok)
		if err := guard(func() error { return r.ctl.KeyUp(k) }); err != nil {
			stats.Failed++
			r.logger.Warn("cleanup release failed", "token", tok.Format(), "error", err)
		}
	}
}

func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
