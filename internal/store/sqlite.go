package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    path         TEXT NOT NULL UNIQUE,
    created_at   INTEGER NOT NULL,
    event_count  INTEGER NOT NULL,
    duration_ms  INTEGER NOT NULL,
    digest       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at);
CREATE INDEX IF NOT EXISTS idx_recordings_digest ON recordings(digest);

CREATE TABLE IF NOT EXISTS replays (
    job_id        TEXT PRIMARY KEY,
    recording_id  TEXT REFERENCES recordings(id) ON DELETE SET NULL,
    source        TEXT NOT NULL,
    repeat        INTEGER NOT NULL,
    speed         REAL NOT NULL,
    state         TEXT NOT NULL,
    repetitions   INTEGER NOT NULL,
    executed      INTEGER NOT NULL,
    skipped       INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    started_at    INTEGER NOT NULL,
    ended_at      INTEGER NOT NULL,
    error         TEXT
);

CREATE INDEX IF NOT EXISTS idx_replays_started ON replays(started_at);
CREATE INDEX IF NOT EXISTS idx_replays_recording ON replays(recording_id, started_at);
`

// Store is the SQLite catalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutRecording inserts r, or refreshes the row already stored for r.Path.
// The stored ID is returned.
func (s *Store) PutRecording(r *Recording) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.db.Exec(`
		INSERT INTO recordings (id, name, path, created_at, event_count, duration_ms, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			event_count = excluded.event_count,
			duration_ms = excluded.duration_ms,
			digest = excluded.digest`,
		r.ID.String(), r.Name, r.Path, r.CreatedAt.UnixNano(), r.EventCount,
		r.Duration.Milliseconds(), r.Digest,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("put recording: %w", err)
	}
	got, err := s.RecordingByPath(r.Path)
	if err != nil {
		return uuid.Nil, err
	}
	r.ID = got.ID
	return got.ID, nil
}

const recordingColumns = `id, name, path, created_at, event_count, duration_ms, digest`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (*Recording, error) {
	var (
		r         Recording
		id        string
		createdNs int64
		durMs     int64
	)
	if err := row.Scan(&id, &r.Name, &r.Path, &createdNs, &r.EventCount, &durMs, &r.Digest); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("recording id %q: %w", id, err)
	}
	r.ID = parsed
	r.CreatedAt = time.Unix(0, createdNs)
	r.Duration = time.Duration(durMs) * time.Millisecond
	return &r, nil
}

func (s *Store) recordingWhere(clause string, arg any) (*Recording, error) {
	row := s.db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE `+clause, arg)
	r, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return r, nil
}

// GetRecording looks a recording up by ID.
func (s *Store) GetRecording(id uuid.UUID) (*Recording, error) {
	return s.recordingWhere("id = ?", id.String())
}

// RecordingByPath looks a recording up by file path.
func (s *Store) RecordingByPath(path string) (*Recording, error) {
	return s.recordingWhere("path = ?", path)
}

// ListRecordings returns recordings newest first. limit <= 0 returns all.
func (s *Store) ListRecordings(limit int) ([]*Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings ORDER BY created_at DESC, name`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(q+` LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []*Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecording removes a recording. Its replay history is kept with the
// recording link cleared.
func (s *Store) DeleteRecording(id uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM recordings WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertReplay records a finished replay job.
func (s *Store) InsertReplay(r *Replay) error {
	var recID any
	if r.RecordingID != nil {
		recID = r.RecordingID.String()
	}
	var errText any
	if r.Error != "" {
		errText = r.Error
	}
	_, err := s.db.Exec(`
		INSERT INTO replays (job_id, recording_id, source, repeat, speed, state, repetitions,
			executed, skipped, failed, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID.String(), recID, r.Source, r.Repeat, r.Speed, r.State, r.Repetitions,
		r.Executed, r.Skipped, r.Failed, r.StartedAt.UnixNano(), r.EndedAt.UnixNano(), errText,
	)
	if err != nil {
		return fmt.Errorf("insert replay: %w", err)
	}
	return nil
}

// ReplayHistory returns replays newest first. A nil recording returns all of
// them; limit <= 0 returns every row.
func (s *Store) ReplayHistory(recording *uuid.UUID, limit int) ([]*Replay, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT job_id, recording_id, source, repeat, speed, state, repetitions,
		executed, skipped, failed, started_at, ended_at, error FROM replays`
	args := []any{}
	if recording != nil {
		q += ` WHERE recording_id = ?`
		args = append(args, recording.String())
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query replays: %w", err)
	}
	defer rows.Close()

	var out []*Replay
	for rows.Next() {
		var (
			r              Replay
			jobID          string
			recID, errText sql.NullString
			startNs, endNs int64
		)
		if err := rows.Scan(&jobID, &recID, &r.Source, &r.Repeat, &r.Speed, &r.State,
			&r.Repetitions, &r.Executed, &r.Skipped, &r.Failed, &startNs, &endNs, &errText); err != nil {
			return nil, fmt.Errorf("scan replay: %w", err)
		}
		if r.JobID, err = uuid.Parse(jobID); err != nil {
			return nil, fmt.Errorf("replay id %q: %w", jobID, err)
		}
		if recID.Valid {
			id, err := uuid.Parse(recID.String)
			if err != nil {
				return nil, fmt.Errorf("replay recording id %q: %w", recID.String, err)
			}
			r.RecordingID = &id
		}
		r.StartedAt = time.Unix(0, startNs)
		r.EndedAt = time.Unix(0, endNs)
		r.Error = errText.String
		out = append(out, &r)
	}
	return out, rows.Err()
}
