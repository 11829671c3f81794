// Package config loads, validates and watches the slaunch configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"slaunch/internal/capture"
	"slaunch/internal/device"
	"slaunch/internal/event"
	"slaunch/internal/logging"
	"slaunch/internal/replay"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete configuration.
type Config struct {
	Version int `toml:"version" json:"version" yaml:"version"`

	Recorder RecorderConfig `toml:"recorder" json:"recorder" yaml:"recorder"`
	Replay   ReplayConfig   `toml:"replay" json:"replay" yaml:"replay"`
	Device   DeviceConfig   `toml:"device" json:"device" yaml:"device"`
	Storage  StorageConfig  `toml:"storage" json:"storage" yaml:"storage"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging"`
	Notify   NotifyConfig   `toml:"notify" json:"notify" yaml:"notify"`
}

// RecorderConfig tunes capture sessions.
type RecorderConfig struct {
	// PollIntervalMs is the stop-gesture check period.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// StopHoldMs is how long the stop gesture must be held.
	StopHoldMs int `toml:"stop_hold_ms" json:"stop_hold_ms" yaml:"stop_hold_ms"`

	// StopButton is "left", "right" or "middle".
	StopButton string `toml:"stop_button" json:"stop_button" yaml:"stop_button"`

	// TrimCount leading events are dropped; -1 keeps everything.
	TrimCount int `toml:"trim_count" json:"trim_count" yaml:"trim_count"`

	// MaxEvents caps a session; -1 is unbounded.
	MaxEvents int `toml:"max_events" json:"max_events" yaml:"max_events"`

	VoidOffsetMs int `toml:"void_offset_ms" json:"void_offset_ms" yaml:"void_offset_ms"`
}

// ReplayConfig tunes the replayer.
type ReplayConfig struct {
	InfinitePauseMs int `toml:"infinite_pause_ms" json:"infinite_pause_ms" yaml:"infinite_pause_ms"`
	RepeatPauseMs   int `toml:"repeat_pause_ms" json:"repeat_pause_ms" yaml:"repeat_pause_ms"`

	// MaxWaitMs caps a single inter-event wait. 0 disables the cap.
	MaxWaitMs int `toml:"max_wait_ms" json:"max_wait_ms" yaml:"max_wait_ms"`

	Speed float64 `toml:"speed" json:"speed" yaml:"speed"`
}

// DeviceConfig selects input devices.
type DeviceConfig struct {
	// Backend is "auto", "x11" or "uinput".
	Backend        string   `toml:"backend" json:"backend" yaml:"backend"`
	UinputPath     string   `toml:"uinput_path" json:"uinput_path" yaml:"uinput_path"`
	Display        string   `toml:"display" json:"display" yaml:"display"`
	ScreenWidth    int      `toml:"screen_width" json:"screen_width" yaml:"screen_width"`
	ScreenHeight   int      `toml:"screen_height" json:"screen_height" yaml:"screen_height"`
	CaptureDevices []string `toml:"capture_devices" json:"capture_devices" yaml:"capture_devices"`
}

// StorageConfig holds file locations.
type StorageConfig struct {
	RecordsDir   string `toml:"records_dir" json:"records_dir" yaml:"records_dir"`
	PresetsDir   string `toml:"presets_dir" json:"presets_dir" yaml:"presets_dir"`
	DatabasePath string `toml:"database_path" json:"database_path" yaml:"database_path"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	Enabled   bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	TimeoutMs int  `toml:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dataDir := DataDir()
	dev := device.DefaultOptions()
	return &Config{
		Version: Version,
		Recorder: RecorderConfig{
			PollIntervalMs: 50,
			StopHoldMs:     2000,
			StopButton:     "left",
			TrimCount:      5,
			MaxEvents:      1_000_000,
			VoidOffsetMs:   100,
		},
		Replay: ReplayConfig{
			InfinitePauseMs: 100,
			RepeatPauseMs:   500,
			Speed:           1,
		},
		Device: DeviceConfig{
			Backend:      string(dev.Backend),
			UinputPath:   dev.UinputPath,
			ScreenWidth:  dev.ScreenWidth,
			ScreenHeight: dev.ScreenHeight,
		},
		Storage: StorageConfig{
			RecordsDir:   filepath.Join(dataDir, "records"),
			PresetsDir:   filepath.Join(dataDir, "presets"),
			DatabasePath: filepath.Join(dataDir, "slaunch.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		Notify: NotifyConfig{
			Enabled:   true,
			TimeoutMs: 5000,
		},
	}
}

// ApplyEnvOverrides applies SLAUNCH_* environment variables. Unparseable
// numbers are ignored and left to Validate.
func (c *Config) ApplyEnvOverrides() {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("SLAUNCH_RECORDS_DIR", &c.Storage.RecordsDir)
	str("SLAUNCH_PRESETS_DIR", &c.Storage.PresetsDir)
	str("SLAUNCH_DATABASE_PATH", &c.Storage.DatabasePath)
	str("SLAUNCH_BACKEND", &c.Device.Backend)
	str("SLAUNCH_UINPUT_PATH", &c.Device.UinputPath)
	str("SLAUNCH_LOG_LEVEL", &c.Logging.Level)
	str("SLAUNCH_LOG_PATH", &c.Logging.FilePath)
	num("SLAUNCH_MAX_WAIT_MS", &c.Replay.MaxWaitMs)
	num("SLAUNCH_STOP_HOLD_MS", &c.Recorder.StopHoldMs)

	if v := os.Getenv("SLAUNCH_DISPLAY"); v != "" {
		c.Device.Display = v
	} else if c.Device.Display == "" {
		c.Device.Display = os.Getenv("DISPLAY")
	}
	if v := os.Getenv("SLAUNCH_CAPTURE_DEVICES"); v != "" {
		c.Device.CaptureDevices = splitList(v)
	}
	if v := os.Getenv("SLAUNCH_NOTIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Notify.Enabled = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Device.CaptureDevices = append([]string(nil), c.Device.CaptureDevices...)
	return &clone
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the storage directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Storage.RecordsDir,
		c.Storage.PresetsDir,
		filepath.Dir(c.Storage.DatabasePath),
	} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// CaptureOptions converts the recorder section.
func (c *Config) CaptureOptions() capture.Options {
	opts := capture.DefaultOptions()
	opts.PollInterval = ms(c.Recorder.PollIntervalMs)
	opts.StopHold = ms(c.Recorder.StopHoldMs)
	opts.TrimCount = c.Recorder.TrimCount
	opts.MaxEvents = c.Recorder.MaxEvents
	opts.VoidOffset = ms(c.Recorder.VoidOffsetMs)
	if b := event.ParseButton(c.Recorder.StopButton); b.Valid() {
		opts.StopButton = b
	}
	return opts
}

// ReplayOptions converts the replay section.
func (c *Config) ReplayOptions() replay.Options {
	return replay.Options{
		InfinitePause: ms(c.Replay.InfinitePauseMs),
		RepeatPause:   ms(c.Replay.RepeatPauseMs),
		MaxWait:       ms(c.Replay.MaxWaitMs),
	}
}

// DeviceOptions converts the device section.
func (c *Config) DeviceOptions() device.Options {
	return device.Options{
		Backend:        device.Backend(c.Device.Backend),
		UinputPath:     c.Device.UinputPath,
		Display:        c.Device.Display,
		ScreenWidth:    c.Device.ScreenWidth,
		ScreenHeight:   c.Device.ScreenHeight,
		CaptureDevices: append([]string(nil), c.Device.CaptureDevices...),
	}
}

// LoggerConfig converts the logging section. Validate reports bad level or
// format names; here they fall back to the defaults.
func (c *Config) LoggerConfig() *logging.Config {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = lvl
	}
	if f, err := logging.ParseFormat(c.Logging.Format); err == nil {
		lc.Format = f
	}
	if c.Logging.Output != "" {
		lc.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	lc.Compress = c.Logging.Compress
	return lc
}

// NotifyTimeout returns the notification display time.
func (c *Config) NotifyTimeout() time.Duration {
	return ms(c.Notify.TimeoutMs)
}
