// Package notify posts desktop notifications when recordings and replays
// finish.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"slaunch/internal/event"
	"slaunch/internal/logging"
	"slaunch/internal/replay"
)

// Urgency follows the freedesktop notification urgency levels.
type Urgency byte

// Urgency levels.
const (
	Low      Urgency = 0
	Normal   Urgency = 1
	Critical Urgency = 2
)

// Message is one notification.
type Message struct {
	Summary string
	Body    string
	Urgency Urgency
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Nop discards every message.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Message) error { return nil }

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = busName + ".Notify"
)

// DBus sends notifications to the session notification daemon.
type DBus struct {
	conn    *dbus.Conn
	app     string
	icon    string
	timeout time.Duration
}

// NewDBus connects to the session bus.
func NewDBus(app, icon string, timeout time.Duration) (*DBus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DBus{conn: conn, app: app, icon: icon, timeout: timeout}, nil
}

// Notify posts msg and waits for the daemon to accept it.
func (d *DBus) Notify(ctx context.Context, msg Message) error {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(msg.Urgency)),
	}
	obj := d.conn.Object(busName, dbus.ObjectPath(objectPath))
	call := obj.CallWithContext(ctx, method, 0,
		d.app,
		uint32(0),
		d.icon,
		msg.Summary,
		msg.Body,
		[]string{},
		hints,
		int32(d.timeout/time.Millisecond),
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	var id uint32
	return call.Store(&id)
}

// Open returns a D-Bus notifier when enabled and reachable, otherwise Nop.
func Open(enabled bool, app string, timeout time.Duration, logger *slog.Logger) Notifier {
	if !enabled {
		return Nop{}
	}
	if logger == nil {
		logger = logging.Default().WithComponent("notify").Logger
	}
	n, err := NewDBus(app, "input-keyboard", timeout)
	if err != nil {
		logger.Warn("desktop notifications unavailable", "error", err)
		return Nop{}
	}
	return n
}

// ReplayFinished describes the end of a replay job.
func ReplayFinished(name string, rep replay.JobReport) Message {
	res := rep.Result
	elapsed := rep.Ended.Sub(rep.Started).Round(100 * time.Millisecond)
	switch res.State {
	case replay.StateCompleted:
		return Message{
			Summary: fmt.Sprintf("Replay finished: %s", name),
			Body: fmt.Sprintf("%d repetition(s) in %s, %d skipped action(s)",
				res.Repetitions, elapsed, res.Stats.Skipped),
			Urgency: Low,
		}
	case replay.StateCancelled:
		return Message{
			Summary: fmt.Sprintf("Replay stopped: %s", name),
			Body:    fmt.Sprintf("Cancelled after %d repetition(s)", res.Repetitions),
			Urgency: Normal,
		}
	default:
		body := "unknown error"
		if rep.Err != nil {
			body = rep.Err.Error()
		}
		var f *replay.Failure
		if errors.As(rep.Err, &f) {
			body = fmt.Sprintf("Repetition %d: %v", f.Repetition, f.Err)
		}
		return Message{
			Summary: fmt.Sprintf("Replay failed: %s", name),
			Body:    body,
			Urgency: Critical,
		}
	}
}

// RecordingSaved describes a saved recording.
func RecordingSaved(path string, buf event.Buffer) Message {
	return Message{
		Summary: "Recording saved",
		Body:    fmt.Sprintf("%d events, %.1fs: %s", len(buf), buf.Duration(), path),
		Urgency: Low,
	}
}
