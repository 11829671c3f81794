package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"slaunch/internal/event"
	"slaunch/internal/replay"
)

func TestReplayFinished(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rep := replay.JobReport{
		Started: start,
		Ended:   start.Add(3 * time.Second),
		Result: replay.Result{
			State:       replay.StateCompleted,
			Repetitions: 2,
			Stats:       replay.Stats{Executed: 10, Skipped: 1},
		},
	}
	msg := ReplayFinished("login", rep)
	assert.Equal(t, "Replay finished: login", msg.Summary)
	assert.Equal(t, "2 repetition(s) in 3s, 1 skipped action(s)", msg.Body)
	assert.Equal(t, Low, msg.Urgency)

	rep.Result.State = replay.StateCancelled
	msg = ReplayFinished("login", rep)
	assert.Equal(t, "Replay stopped: login", msg.Summary)
	assert.Equal(t, Normal, msg.Urgency)

	rep.Result.State = replay.StateFailed
	rep.Err = &replay.Failure{Repetition: 2, Err: errors.New("device gone")}
	msg = ReplayFinished("login", rep)
	assert.Equal(t, "Repetition 2: device gone", msg.Body)
	assert.Equal(t, Critical, msg.Urgency)

	rep.Err = fmt.Errorf("%w: speed 0", replay.ErrInvalidJob)
	msg = ReplayFinished("login", rep)
	assert.Contains(t, msg.Body, "speed 0")
}

func TestRecordingSaved(t *testing.T) {
	buf := event.Buffer{event.Move(0, 0, 1), event.Void(3.5)}
	msg := RecordingSaved("/tmp/r.json", buf)
	assert.Equal(t, "2 events, 2.5s: /tmp/r.json", msg.Body)
}

func TestOpenDisabled(t *testing.T) {
	n := Open(false, "slaunch", time.Second, nil)
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.Notify(context.Background(), Message{Summary: "x"}))
}
