package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/event"
)

type fakeSource struct {
	mu        sync.Mutex
	h         Handler
	attachErr error
	attached  int
	detached  int
}

func (f *fakeSource) Attach(h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.h = h
	f.attached++
	return nil
}

func (f *fakeSource) Detach() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.h = nil
	f.detached++
	return nil
}

func (f *fakeSource) emit(events ...event.Event) {
	for _, e := range events {
		f.mu.Lock()
		h := f.h
		f.mu.Unlock()
		if h != nil {
			h(e)
		}
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

var (
	shift  = event.SpecialToken("shift")
	shiftR = event.SpecialToken("shift_r")
	keyA   = event.CharToken('a')
)

func noise(n int) event.Buffer {
	out := make(event.Buffer, n)
	for i := range out {
		out[i] = event.Move(i, i, float64(i)*0.01)
	}
	return out
}

func TestFinalizeTooFewEvents(t *testing.T) {
	st := NewState()
	st.HeldKeys[shift] = struct{}{}
	assert.Empty(t, Finalize(noise(4), st, 10, Options{}))
}

func TestFinalizeExactlyTrimCount(t *testing.T) {
	assert.Empty(t, Finalize(noise(5), NewState(), 10, Options{}))
}

func TestFinalizeTrimsAndAppendsVoid(t *testing.T) {
	raw := append(noise(5), event.Move(50, 50, 1.0), event.Press(keyA, 1.2), event.Release(keyA, 1.3))
	got := Finalize(raw, NewState(), 9, Options{})

	require.Len(t, got, 4)
	assert.Equal(t, event.Move(50, 50, 1.0), got[0])
	assert.Equal(t, event.KindVoid, got[3].Kind)
	assert.InDelta(t, 1.4, got[3].Time, 1e-9)
	assert.Equal(t, 1, got.Count(event.KindVoid))
}

func TestFinalizeNeverDuplicatesVoid(t *testing.T) {
	raw := append(noise(5), event.Move(1, 1, 1.0), event.Void(1.1))
	once := Finalize(raw, NewState(), 9, Options{})
	require.Equal(t, event.Buffer{event.Move(1, 1, 1.0), event.Void(1.1)}, roundVoid(once))

	twice := Finalize(append(noise(5), once...), NewState(), 9, Options{})
	assert.Equal(t, roundVoid(once), roundVoid(twice))
}

func roundVoid(b event.Buffer) event.Buffer {
	out := b.Clone()
	for i := range out {
		if out[i].Kind == event.KindVoid {
			out[i].Time = float64(int(out[i].Time*1000+0.5)) / 1000
		}
	}
	return out
}

func TestFinalizeStuckKeySynthesis(t *testing.T) {
	raw := append(noise(5), event.Move(3, 3, 4.0), event.Press(shift, 5.0))
	st := NewState()
	st.Track(event.Press(shift, 5.0))

	got := Finalize(raw, st, 7.0, Options{})
	require.Len(t, got, 4)
	assert.Equal(t, event.Press(shift, 5.0), got[1])
	assert.Equal(t, event.Release(shift, 7.0), got[2])
	assert.Equal(t, event.KindVoid, got[3].Kind)
	assert.InDelta(t, 7.1, got[3].Time, 1e-9)
}

func TestFinalizeReleasesHeldButtonsAndKeys(t *testing.T) {
	raw := append(noise(5),
		event.Move(30, 40, 1.0),
		event.Click(30, 40, event.ButtonRight, true, 1.1),
		event.Click(30, 40, event.ButtonLeft, true, 1.2),
		event.Press(shiftR, 1.3),
		event.Press(keyA, 1.4),
	)
	st := NewState()
	for _, e := range raw {
		st.Track(e)
	}

	got := Finalize(raw, st, 3.0, Options{})
	tail := got[len(got)-5:]
	assert.Equal(t, event.Click(30, 40, event.ButtonLeft, false, 3.0), tail[0], "primary button first")
	assert.Equal(t, event.Click(30, 40, event.ButtonRight, false, 3.0), tail[1])
	assert.Equal(t, event.Release(keyA, 3.0), tail[2], "keys in token order")
	assert.Equal(t, event.Release(shiftR, 3.0), tail[3])
	assert.Equal(t, event.KindVoid, tail[4].Kind)
}

func TestFinalizeSkipsAlreadyReleased(t *testing.T) {
	raw := append(noise(5), event.Press(keyA, 1.0), event.Release(keyA, 1.1))
	st := NewState()
	st.HeldKeys[keyA] = struct{}{}

	got := Finalize(raw, st, 2.0, Options{})
	assert.Equal(t, 1, got.Count(event.KindKeyRelease))
}

func TestFinalizeNoTrim(t *testing.T) {
	got := Finalize(event.Buffer{event.Move(1, 1, 1)}, NewState(), 2, Options{TrimCount: -1})
	require.Len(t, got, 2)
	assert.Equal(t, event.Move(1, 1, 1), got[0])
}

func newTestRecorder(src Source, opts Options) *Recorder {
	return NewRecorder(src, opts, nil)
}

func TestRecorderStartStop(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{t: time.Unix(100, 0)}
	r := newTestRecorder(src, Options{})
	r.now = clk.Now

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.IsRecording())

	src.emit(noise(5)...)
	src.emit(event.Move(7, 8, 101), event.Press(shift, 101.5))
	clk.Set(time.Unix(107, 0))

	buf := r.Stop()
	assert.False(t, r.IsRecording())
	assert.Equal(t, 1, src.attached)
	assert.Equal(t, 1, src.detached)

	require.Len(t, buf, 4)
	assert.Equal(t, event.Release(shift, 107), buf[2])
	assert.True(t, buf.EndsWithVoid())

	waited, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, buf, waited)

	src.emit(event.Move(1, 1, 200))
	assert.Equal(t, event.Buffer{}, r.Stop(), "stop without session")
}

func TestRecorderStampsZeroTime(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{t: time.Unix(50, 500_000_000)}
	r := newTestRecorder(src, Options{TrimCount: -1})
	r.now = clk.Now

	require.NoError(t, r.Start(context.Background()))
	src.emit(event.Event{Kind: event.KindMouseMove, X: 1, Y: 2})
	buf := r.Stop()
	require.Len(t, buf, 2)
	assert.InDelta(t, 50.5, buf[0].Time, 1e-6)
}

func TestRecorderRejectsConcurrentStart(t *testing.T) {
	src := &fakeSource{}
	r := newTestRecorder(src, Options{})
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRecording)
	assert.Equal(t, 1, src.attached)
}

func TestRecorderCaptureUnavailable(t *testing.T) {
	cause := errors.New("permission denied")
	src := &fakeSource{attachErr: cause}
	r := newTestRecorder(src, Options{})

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.False(t, r.IsRecording())

	src.attachErr = nil
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}

func TestRecorderWaitWithoutSession(t *testing.T) {
	r := newTestRecorder(&fakeSource{}, Options{})
	_, err := r.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderBufferCap(t *testing.T) {
	src := &fakeSource{}
	r := newTestRecorder(src, Options{TrimCount: -1, MaxEvents: 3})
	require.NoError(t, r.Start(context.Background()))

	src.emit(event.Move(1, 1, 1), event.Move(2, 2, 2), event.Move(3, 3, 3), event.Press(keyA, 4), event.Move(5, 5, 5))
	buf := r.Stop()

	require.Len(t, buf, 5)
	assert.Equal(t, event.Move(3, 3, 3), buf[2])
	assert.Equal(t, event.KindKeyRelease, buf[3].Kind, "dropped press still tracked as held")
	assert.Equal(t, keyA, buf[3].Key)
}

func TestRecorderStopGesture(t *testing.T) {
	src := &fakeSource{}
	var autoStopped atomic.Int32
	r := newTestRecorder(src, Options{
		PollInterval: 5 * time.Millisecond,
		StopHold:     50 * time.Millisecond,
		OnAutoStop:   func(event.Buffer) { autoStopped.Add(1) },
	})
	require.NoError(t, r.Start(context.Background()))

	src.emit(noise(5)...)
	src.emit(event.Move(10, 20, 0))
	src.emit(event.Press(shift, 0))
	src.emit(event.Click(10, 20, event.ButtonLeft, true, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	buf, err := r.Wait(ctx)
	require.NoError(t, err)

	assert.False(t, r.IsRecording())
	assert.Eventually(t, func() bool { return autoStopped.Load() == 1 }, time.Second, time.Millisecond)
	require.Len(t, buf, 6)
	assert.Equal(t, event.KindMouseClick, buf[3].Kind)
	assert.False(t, buf[3].Pressed)
	assert.Equal(t, 10, buf[3].X)
	assert.Equal(t, event.Release(shift, buf[4].Time), buf[4])
	assert.True(t, buf.EndsWithVoid())
	assert.Equal(t, 1, src.detached)
}

// stallClock blocks the first Now call after arm until release is closed.
type stallClock struct {
	mu      sync.Mutex
	t       time.Time
	armed   bool
	stalled chan struct{}
	release chan struct{}
}

func (c *stallClock) Now() time.Time {
	c.mu.Lock()
	stall := c.armed
	c.armed = false
	t := c.t
	c.mu.Unlock()
	if stall {
		close(c.stalled)
		<-c.release
	}
	return t
}

func (c *stallClock) arm() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRecorderStopGivesUpOnStuckMonitor(t *testing.T) {
	src := &fakeSource{}
	clk := &stallClock{
		t:       time.Unix(100, 0),
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
	var logs lockedBuffer
	r := NewRecorder(src, Options{
		PollInterval: 5 * time.Millisecond,
		StopHold:     time.Hour,
		JoinTimeout:  50 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(&logs, nil)))
	r.now = clk.Now

	require.NoError(t, r.Start(context.Background()))
	src.emit(noise(5)...)
	src.emit(event.Press(shift, 100), event.Click(1, 1, event.ButtonLeft, true, 100))

	// The gesture is held, so the monitor's next poll reads the clock and stalls.
	clk.arm()
	select {
	case <-clk.stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never polled the gesture")
	}

	start := time.Now()
	buf := r.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, buf.EndsWithVoid())
	assert.False(t, r.IsRecording())
	assert.Equal(t, 1, src.detached)
	assert.Contains(t, logs.String(), "monitor did not exit in time")

	close(clk.release)
	select {
	case <-r.last.monitorDone:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not exit after the clock recovered")
	}
}

func TestRecorderGestureTimerResets(t *testing.T) {
	src := &fakeSource{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	r := newTestRecorder(src, Options{PollInterval: 2 * time.Millisecond})
	r.now = clk.Now
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	src.emit(event.Click(0, 0, event.ButtonLeft, true, 1000), event.Press(shift, 1000))
	clk.Set(time.Unix(1001, 0))
	src.emit(event.Release(shift, 1001), event.Press(shiftR, 1001))
	clk.Set(time.Unix(1002, 500_000_000))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, r.IsRecording(), "gesture restarted at the second press")

	clk.Set(time.Unix(1003, 100_000_000))
	assert.Eventually(t, func() bool { return !r.IsRecording() }, time.Second, 2*time.Millisecond)
}

func TestRecorderContextCancel(t *testing.T) {
	src := &fakeSource{}
	r := newTestRecorder(src, Options{PollInterval: 2 * time.Millisecond, TrimCount: -1})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	src.emit(event.Move(1, 1, 1))
	cancel()

	wctx, wcancel := context.WithTimeout(context.Background(), time.Second)
	defer wcancel()
	buf, err := r.Wait(wctx)
	require.NoError(t, err)
	assert.Len(t, buf, 2)
	assert.False(t, r.IsRecording())
}

func TestRecorderConcurrentEmit(t *testing.T) {
	src := &fakeSource{}
	r := newTestRecorder(src, Options{TrimCount: -1})
	require.NoError(t, r.Start(context.Background()))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				src.emit(event.Move(g, i, float64(i+1)))
			}
		}(g)
	}
	wg.Wait()
	buf := r.Stop()
	assert.Len(t, buf, 401)
}
