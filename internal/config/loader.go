package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Load reads path, applies environment overrides and validates. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}
	return cfg, nil
}

// Encode renders cfg as TOML, JSON or YAML according to ext.
func Encode(cfg *Config, ext string) ([]byte, error) {
	switch ext {
	case ".json":
		return json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	buf.WriteString("# slaunch configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveConfig writes cfg in the format implied by the extension of path.
func SaveConfig(cfg *Config, path string) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadOrCreate loads path, writing the defaults there first when it does not
// exist. The boolean reports whether the file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = ConfigPath()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := SaveConfig(DefaultConfig(), path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		cfg, err := Load(path)
		return cfg, true, err
	}
	cfg, err := Load(path)
	return cfg, false, err
}

// Loader holds the current configuration and reloads it when the file
// changes on disk.
type Loader struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	config   *Config
	onChange []func(old, new *Config)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	errs    chan error
}

// NewLoader creates a loader for path, or for ConfigPath when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	return &Loader{
		path:     path,
		debounce: 100 * time.Millisecond,
		errs:     make(chan error, 1),
	}
}

// Load reads the file and makes it current.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers cb for successful reloads. Register before Watch.
func (l *Loader) OnChange(cb func(old, new *Config)) {
	l.mu.Lock()
	l.onChange = append(l.onChange, cb)
	l.mu.Unlock()
}

// Errors delivers reload failures. The current configuration is kept when a
// reload fails.
func (l *Loader) Errors() <-chan error {
	return l.errs
}

// Watch reloads the file on write until ctx is cancelled or Close is called.
// The parent directory is watched so editors that replace the file are seen.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	l.watcher = w
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.watchLoop(ctx)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context) {
	defer close(l.done)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(l.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(l.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			l.reload()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload config: %w", err))
		return
	}
	l.mu.Lock()
	old := l.config
	l.config = cfg
	cbs := append([]func(old, new *Config){}, l.onChange...)
	l.mu.Unlock()

	for _, cb := range cbs {
		cb(old, cfg)
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()
	err := l.watcher.Close()
	<-l.done
	return err
}
