package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"slaunch/internal/capture"
	"slaunch/internal/device"
	"slaunch/internal/notify"
	"slaunch/internal/preset"
	"slaunch/internal/recording"
)

func cmdRecord(args []string) error {
	fs, g := newFlagSet("record")
	dir := fs.String("o", "", "Directory for the recording file (default: storage.records_dir)")
	presetPath := fs.String("preset", "", "Embed the recording into this .slaunch preset instead")
	title := fs.String("title", "", "Preset title (with -preset)")
	howMany := fs.Int("how-many", 1, "Preset repeat count, -1 for infinite (with -preset)")
	fs.Parse(args)

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	devOpts := a.cfg.DeviceOptions()
	pointer, closePointer := device.OpenPointer(devOpts, a.component("device"))
	defer closePointer()

	src := device.NewEvdevSource(devOpts, pointer, a.component("evdev"))
	rec := capture.NewRecorder(src, a.cfg.CaptureOptions(), a.component("capture"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	a.watchConfig(ctx)

	if err := rec.Start(ctx); err != nil {
		return err
	}
	fmt.Println("Recording. Hold Shift + left button for two seconds, or press Ctrl-C, to stop.")

	buf, err := rec.Wait(context.Background())
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		fmt.Println("Nothing recorded.")
		return nil
	}

	now := time.Now()
	var saved string
	if *presetPath != "" {
		name := *title
		if name == "" {
			name = strippedBase(*presetPath)
		}
		doc := preset.New(name, *howMany, buf)
		if err := preset.Save(*presetPath, doc); err != nil {
			return err
		}
		saved = *presetPath
	} else {
		out := *dir
		if out == "" {
			out = a.cfg.Storage.RecordsDir
		}
		if saved, err = recording.SaveRecord(out, buf, now); err != nil {
			return err
		}
		if err := a.catalog(saved, buf, now); err != nil {
			a.logger.Warn("catalog recording failed", "path", saved, "error", err)
		}
	}

	fmt.Printf("Saved %d events (%.1fs) to %s\n", len(buf), buf.Duration(), saved)
	a.notify(notify.RecordingSaved(saved, buf))
	return nil
}

func strippedBase(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func (a *app) notify(msg notify.Message) {
	n := notify.Open(a.cfg.Notify.Enabled, "slaunch", a.cfg.NotifyTimeout(), a.component("notify"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Notify(ctx, msg); err != nil {
		a.logger.Debug("notification failed", "error", err)
	}
}
