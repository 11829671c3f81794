package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"slaunch/internal/device"
	"slaunch/internal/event"
	"slaunch/internal/notify"
	"slaunch/internal/preset"
	"slaunch/internal/recording"
	"slaunch/internal/replay"
	"slaunch/internal/store"
)

// source is a loaded replay target.
type source struct {
	name    string
	path    string
	buf     event.Buffer
	repeat  int
	catalog string // recording file to link history rows to; empty when embedded
}

func (a *app) loadSource(path string) (*source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), preset.Extension) {
		doc, err := preset.Load(abs)
		if err != nil {
			return nil, err
		}
		buf, err := doc.Resolve(a.cfg.Storage.RecordsDir)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", path, err)
		}
		src := &source{name: doc.Title(), path: abs, buf: buf, repeat: doc.HowMany}
		if doc.Events == nil {
			src.catalog = doc.RecordFile(a.cfg.Storage.RecordsDir)
		}
		if src.name == "" {
			src.name = strippedBase(path)
		}
		return src, nil
	}
	buf, err := recording.LoadRecord(abs)
	if err != nil {
		return nil, err
	}
	return &source{name: filepath.Base(path), path: abs, buf: buf, repeat: 1, catalog: abs}, nil
}

func cmdReplay(args []string) error {
	fs, g := newFlagSet("replay")
	repeat := fs.Int("n", 0, "Repetitions, -1 for infinite (default: preset how_many, else 1)")
	speed := fs.Float64("speed", 0, "Playback speed factor (default: replay.speed)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: slaunch replay <file> [-n count] [-speed factor]")
		os.Exit(1)
	}

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	src, err := a.loadSource(fs.Arg(0))
	if err != nil {
		return err
	}
	if *repeat != 0 {
		src.repeat = preset.NormalizeHowMany(*repeat)
	}
	if *speed == 0 {
		*speed = a.cfg.Replay.Speed
	}

	ctl, err := device.OpenController(a.cfg.DeviceOptions(), a.component("device"))
	if err != nil {
		return err
	}
	defer ctl.Close()

	st, err := a.openStore()
	if err != nil {
		a.logger.Warn("replay history unavailable", "error", err)
	} else {
		defer st.Close()
	}

	runner := replay.NewRunner(replay.New(ctl, a.cfg.ReplayOptions(), a.component("replay")), a.component("runner"))
	runner.OnComplete(func(rep replay.JobReport) {
		if st != nil {
			if err := st.InsertReplay(historyRow(st, src, rep)); err != nil {
				a.logger.Warn("record replay history failed", "error", err)
			}
		}
		a.notify(notify.ReplayFinished(src.name, rep))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	a.watchConfig(ctx)

	times := fmt.Sprint(src.repeat)
	if src.repeat == replay.Infinite {
		times = "until Ctrl-C"
	}
	fmt.Printf("Replaying %s (%d events, %s, speed %.2gx)\n", src.name, len(src.buf), times, *speed)

	job := runner.Start(src.buf, src.repeat, *speed)
	res, err := a.drive(ctx, runner, job)

	fmt.Printf("%s: %d repetition(s), %d executed, %d skipped, %d failed\n",
		res.State, res.Repetitions, res.Stats.Executed, res.Stats.Skipped, res.Stats.Failed)
	return err
}

// drive waits for job, cancelling everything runner still plays once ctx
// ends. It returns after the runner's completion callbacks have run.
func (a *app) drive(ctx context.Context, runner *replay.Runner, job *replay.Job) (replay.Result, error) {
	select {
	case <-ctx.Done():
		a.logger.Info("stopping replay", "jobs", len(runner.Active()))
		runner.CancelAll()
	case <-job.Done():
	}
	runner.Wait()
	return job.Wait()
}

func historyRow(st *store.Store, src *source, rep replay.JobReport) *store.Replay {
	row := &store.Replay{
		JobID:       rep.ID,
		Source:      src.path,
		Repeat:      rep.Repeat,
		Speed:       rep.Speed,
		State:       rep.Result.State.String(),
		Repetitions: rep.Result.Repetitions,
		Executed:    rep.Result.Stats.Executed,
		Skipped:     rep.Result.Stats.Skipped,
		Failed:      rep.Result.Stats.Failed,
		StartedAt:   rep.Started,
		EndedAt:     rep.Ended,
	}
	if rep.Err != nil {
		row.Error = rep.Err.Error()
	}
	if src.catalog != "" {
		if rec, err := st.RecordingByPath(src.catalog); err == nil {
			row.RecordingID = &rec.ID
		}
	}
	return row
}

// recordingFilter resolves a -recording flag value to a catalog ID.
func recordingFilter(st *store.Store, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(value); err == nil {
		return &id, nil
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return nil, err
	}
	rec, err := st.RecordingByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", value, err)
	}
	return &rec.ID, nil
}
