package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Rotator is an io.Writer over a log file that rolls over by size.
type Rotator struct {
	path       string
	maxBytes   int64
	maxBackups int
	compress   bool

	mu   sync.Mutex
	file *os.File
	size int64
	now  func() time.Time
}

// NewRotator opens path for appending. maxBytes <= 0 disables rotation.
func NewRotator(path string, maxBytes int64, maxBackups int, compress bool) (*Rotator, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	r := &Rotator{
		path:       path,
		maxBytes:   maxBytes,
		maxBackups: maxBackups,
		compress:   compress,
		now:        time.Now,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rotator) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *Rotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	ext := filepath.Ext(r.path)
	stem := strings.TrimSuffix(r.path, ext)
	rolled := fmt.Sprintf("%s-%s%s", stem, r.now().Format("20060102-150405.000"), ext)
	if err := os.Rename(r.path, rolled); err != nil && !os.IsNotExist(err) {
		return err
	}
	if r.compress {
		if err := gzipFile(rolled); err != nil {
			return err
		}
	}
	if err := r.open(); err != nil {
		return err
	}
	r.prune()
	return nil
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func (r *Rotator) prune() {
	backups, err := r.Backups()
	if err != nil || r.maxBackups <= 0 || len(backups) <= r.maxBackups {
		return
	}
	for _, p := range backups[:len(backups)-r.maxBackups] {
		os.Remove(p)
	}
}

// Backups lists rotated files, oldest first.
func (r *Rotator) Backups() ([]string, error) {
	ext := filepath.Ext(r.path)
	stem := strings.TrimSuffix(r.path, ext)
	matches, err := filepath.Glob(stem + "-*" + ext + "*")
	if err != nil {
		return nil, err
	}
	// Names embed the rotation timestamp.
	sort.Strings(matches)
	return matches, nil
}

// Close closes the current file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
