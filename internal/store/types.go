// Package store keeps the SQLite catalog of saved recordings and the history
// of replay jobs run against them.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Recording is one catalogued recording file.
type Recording struct {
	ID         uuid.UUID
	Name       string
	Path       string
	CreatedAt  time.Time
	EventCount int
	Duration   time.Duration
	Digest     string
}

// Replay is one finished replay job.
type Replay struct {
	JobID       uuid.UUID
	RecordingID *uuid.UUID
	Source      string
	Repeat      int
	Speed       float64
	State       string
	Repetitions int
	Executed    int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	EndedAt     time.Time
	Error       string
}
