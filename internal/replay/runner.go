package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"slaunch/internal/event"
	"slaunch/internal/logging"
)

// JobReport describes a finished job.
type JobReport struct {
	ID      uuid.UUID
	Repeat  int
	Speed   float64
	Started time.Time
	Ended   time.Time
	Result  Result
	Err     error
}

// Job is one replay running on its own goroutine with its own cancellation.
// The buffer is copied when the job starts and is never shared.
type Job struct {
	ID     uuid.UUID
	Repeat int
	Speed  float64

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	result  Result
	err     error
	started time.Time
	ended   time.Time
}

// Cancel requests the job to stop. It does not wait.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the job has finished and its cleanup has run.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its outcome.
func (j *Job) Wait() (Result, error) {
	<-j.done
	return j.Result()
}

// State returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Result returns the outcome so far. It is final once Done is closed.
func (j *Job) Result() (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

func (j *Job) report() JobReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobReport{
		ID:      j.ID,
		Repeat:  j.Repeat,
		Speed:   j.Speed,
		Started: j.started,
		Ended:   j.ended,
		Result:  j.result,
		Err:     j.err,
	}
}

// Runner starts replay jobs and tracks the active ones.
type Runner struct {
	replayer *Replayer
	logger   *slog.Logger

	mu         sync.Mutex
	jobs       map[uuid.UUID]*Job
	onComplete func(JobReport)
	wg         sync.WaitGroup
}

// NewRunner returns a Runner whose jobs play through rp.
func NewRunner(rp *Replayer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Default().WithComponent("runner").Logger
	}
	return &Runner{
		replayer: rp,
		logger:   logger,
		jobs:     make(map[uuid.UUID]*Job),
	}
}

// OnComplete registers fn to be called with the report of every finished
// job. fn runs on the job's goroutine before the job's Done channel closes,
// so it must not wait on that job.
func (r *Runner) OnComplete(fn func(JobReport)) {
	r.mu.Lock()
	r.onComplete = fn
	r.mu.Unlock()
}

// Start launches a job replaying buf.
func (r *Runner) Start(buf event.Buffer, repeat int, speed float64) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:      uuid.New(),
		Repeat:  repeat,
		Speed:   speed,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateRunning,
		started: time.Now(),
	}
	own := buf.Clone()

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	r.wg.Add(1)

	logger := r.logger.With("job", job.ID.String())
	logger.Info("replay job started", "repeat", repeat, "speed", speed)

	go func() {
		defer r.wg.Done()
		defer cancel()

		res, err := r.replayer.Replay(ctx, own, repeat, speed)
		if err != nil && res.State != StateFailed {
			res.State = StateFailed
		}

		job.mu.Lock()
		job.state = res.State
		job.result = res
		job.err = err
		job.ended = time.Now()
		job.mu.Unlock()

		r.mu.Lock()
		delete(r.jobs, job.ID)
		fn := r.onComplete
		r.mu.Unlock()

		logger.Info("replay job finished", "state", res.State.String(), "error", err)
		if fn != nil {
			fn(job.report())
		}
		close(job.done)
	}()
	return job
}

// Active returns the jobs that have not finished.
func (r *Runner) Active() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

// CancelAll cancels every active job without waiting.
func (r *Runner) CancelAll() {
	for _, j := range r.Active() {
		j.Cancel()
	}
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
