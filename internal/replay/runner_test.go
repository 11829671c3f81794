package replay

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slaunch/internal/event"
)

func TestRunnerJobCompletes(t *testing.T) {
	ctl := newFakeController()
	runner := NewRunner(newTestReplayer(ctl, Options{}), quietLogger())

	var mu sync.Mutex
	var reports []JobReport
	runner.OnComplete(func(r JobReport) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	})

	job := runner.Start(event.Buffer{event.Move(1, 2, 0), event.Void(0.01)}, 1, 1)
	assert.NotEqual(t, uuid.Nil, job.ID)

	res, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, StateCompleted, job.State())
	assert.Empty(t, runner.Active())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reports, 1)
	assert.Equal(t, job.ID, reports[0].ID)
	assert.Equal(t, StateCompleted, reports[0].Result.State)
	assert.False(t, reports[0].Ended.Before(reports[0].Started))
}

func TestRunnerJobCancel(t *testing.T) {
	ctl := newFakeController()
	runner := NewRunner(newTestReplayer(ctl, Options{}), quietLogger())

	job := runner.Start(event.Buffer{event.Press(shift, 0), event.Void(10)}, Infinite, 1)
	require.Eventually(t, func() bool { return ctl.count("down") == 1 }, time.Second, time.Millisecond)
	assert.Len(t, runner.Active(), 1)

	job.Cancel()
	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
	res, err := job.Result()
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.Empty(t, ctl.balance())
}

func TestRunnerJobsAreIndependent(t *testing.T) {
	ctl := newFakeController()
	runner := NewRunner(newTestReplayer(ctl, Options{}), quietLogger())

	long := runner.Start(event.Buffer{event.Move(0, 0, 0), event.Void(10)}, 1, 1)
	short := runner.Start(event.Buffer{event.Move(1, 1, 0), event.Void(0.05)}, 1, 1)

	long.Cancel()
	res, err := short.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)

	res, err = long.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
}

func TestRunnerInvalidJobFails(t *testing.T) {
	runner := NewRunner(newTestReplayer(newFakeController(), Options{}), quietLogger())
	job := runner.Start(event.Buffer{event.Void(0)}, 0, 1)
	res, err := job.Wait()
	assert.ErrorIs(t, err, ErrInvalidJob)
	assert.Equal(t, StateFailed, res.State)
}

func TestRunnerCancelAll(t *testing.T) {
	runner := NewRunner(newTestReplayer(newFakeController(), Options{}), quietLogger())
	for i := 0; i < 3; i++ {
		runner.Start(event.Buffer{event.Move(i, i, 0), event.Void(10)}, Infinite, 1)
	}
	runner.CancelAll()

	done := make(chan struct{})
	go func() {
		runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs did not stop")
	}
	assert.Empty(t, runner.Active())
}
