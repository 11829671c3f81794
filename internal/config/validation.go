package config

import (
	"fmt"
	"strings"

	"slaunch/internal/event"
	"slaunch/internal/logging"
)

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed validation.
func (e ValidationErrors) Has(field string) bool {
	for _, v := range e {
		if v.Field == field {
			return true
		}
	}
	return false
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) check(ok bool, field, format string, args ...any) {
	if !ok {
		v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
}

// ValidateConfig returns ValidationErrors listing every problem, or nil.
func ValidateConfig(c *Config) error {
	var v validator

	v.check(c.Version >= 1 && c.Version <= Version, "version",
		"unsupported version %d (current: %d)", c.Version, Version)

	r := c.Recorder
	v.check(r.PollIntervalMs > 0, "recorder.poll_interval_ms", "must be positive")
	v.check(r.StopHoldMs >= r.PollIntervalMs, "recorder.stop_hold_ms",
		"must be at least poll_interval_ms (%d)", r.PollIntervalMs)
	v.check(event.ParseButton(r.StopButton).Valid(), "recorder.stop_button",
		"unknown button %q", r.StopButton)
	v.check(r.TrimCount >= -1, "recorder.trim_count", "must be -1 or more")
	v.check(r.MaxEvents == -1 || r.MaxEvents > 0, "recorder.max_events", "must be -1 or positive")
	v.check(r.VoidOffsetMs > 0, "recorder.void_offset_ms", "must be positive")

	p := c.Replay
	v.check(p.InfinitePauseMs >= 0, "replay.infinite_pause_ms", "must not be negative")
	v.check(p.RepeatPauseMs >= 0, "replay.repeat_pause_ms", "must not be negative")
	v.check(p.MaxWaitMs >= 0, "replay.max_wait_ms", "must not be negative")
	v.check(p.Speed > 0, "replay.speed", "must be positive")

	d := c.Device
	switch d.Backend {
	case "auto", "x11", "uinput":
	default:
		v.check(false, "device.backend", "unknown backend %q", d.Backend)
	}
	v.check(d.Backend != "uinput" || d.UinputPath != "", "device.uinput_path", "required for the uinput backend")
	v.check(d.ScreenWidth > 0 && d.ScreenHeight > 0, "device.screen", "width and height must be positive")

	s := c.Storage
	v.check(s.RecordsDir != "", "storage.records_dir", "required")
	v.check(s.PresetsDir != "", "storage.presets_dir", "required")
	v.check(s.DatabasePath != "", "storage.database_path", "required")

	l := c.Logging
	_, err := logging.ParseLevel(l.Level)
	v.check(err == nil, "logging.level", "unknown level %q", l.Level)
	_, err = logging.ParseFormat(l.Format)
	v.check(err == nil, "logging.format", "unknown format %q", l.Format)
	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		v.check(l.FilePath != "", "logging.file_path", "required when output is %q", l.Output)
	default:
		v.check(false, "logging.output", "unknown output %q", l.Output)
	}
	v.check(l.MaxSizeMB >= 0, "logging.max_size_mb", "must not be negative")
	v.check(l.MaxBackups >= 0, "logging.max_backups", "must not be negative")

	v.check(c.Notify.TimeoutMs >= 0, "notify.timeout_ms", "must not be negative")

	if len(v.errs) > 0 {
		return v.errs
	}
	return nil
}
