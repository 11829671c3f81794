package capture

import (
	"time"

	"slaunch/internal/event"
)

// Options configures a Recorder. Zero fields take the DefaultOptions value.
type Options struct {
	// PollInterval is how often the monitor checks the stop gesture.
	PollInterval time.Duration

	// StopHold is how long the stop gesture must be held continuously.
	StopHold time.Duration

	// TrimCount raw events are discarded from the start of every capture.
	// Negative disables trimming.
	TrimCount int

	// StopButton is the primary button of the stop gesture.
	StopButton event.Button

	// StopModifiers are the keys, any one of which completes the gesture.
	StopModifiers []event.KeyToken

	// MaxEvents caps the raw buffer. Negative means unbounded.
	MaxEvents int

	// JoinTimeout bounds the wait for the monitor goroutine during Stop.
	JoinTimeout time.Duration

	// VoidOffset separates the terminal void marker from the last event.
	VoidOffset time.Duration

	// OnAutoStop is called with the finalized buffer when the stop gesture
	// ends a session. It runs on the monitor goroutine.
	OnAutoStop func(event.Buffer)
}

// DefaultOptions returns the standard recorder settings.
func DefaultOptions() Options {
	return Options{
		PollInterval: 50 * time.Millisecond,
		StopHold:     2 * time.Second,
		TrimCount:    5,
		StopButton:   event.ButtonLeft,
		StopModifiers: []event.KeyToken{
			event.SpecialToken("shift"),
			event.SpecialToken("shift_r"),
		},
		MaxEvents:   1_000_000,
		JoinTimeout: 2 * time.Second,
		VoidOffset:  100 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.StopHold <= 0 {
		o.StopHold = d.StopHold
	}
	if o.TrimCount == 0 {
		o.TrimCount = d.TrimCount
	}
	if o.StopButton == "" {
		o.StopButton = d.StopButton
	}
	if len(o.StopModifiers) == 0 {
		o.StopModifiers = d.StopModifiers
	}
	if o.MaxEvents == 0 {
		o.MaxEvents = d.MaxEvents
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = d.JoinTimeout
	}
	if o.VoidOffset <= 0 {
		o.VoidOffset = d.VoidOffset
	}
	return o
}
