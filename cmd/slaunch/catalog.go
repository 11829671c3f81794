package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slaunch/internal/config"
	"slaunch/internal/device"
	"slaunch/internal/event"
	"slaunch/internal/preset"
	"slaunch/internal/recording"
	"slaunch/internal/store"
)

// catalog adds or refreshes the store row for a recording file.
func (a *app) catalog(path string, buf event.Buffer, created time.Time) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return catalogInto(st, path, buf, created)
}

func catalogInto(st *store.Store, path string, buf event.Buffer, created time.Time) error {
	digest, err := recording.BufferDigest(buf)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	_, err = st.PutRecording(&store.Recording{
		Name:       strippedBase(path),
		Path:       abs,
		CreatedAt:  created,
		EventCount: len(buf),
		Duration:   time.Duration(math.Round(buf.Duration()*1000)) * time.Millisecond,
		Digest:     digest,
	})
	return err
}

// scanRecords catalogues every recording file in dir.
func (a *app) scanRecords(st *store.Store, dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, path := range matches {
		buf, err := recording.LoadRecord(path)
		if err != nil {
			a.logger.Warn("skipping unreadable recording", "path", path, "error", err)
			continue
		}
		created := time.Now()
		if info, err := os.Stat(path); err == nil {
			created = info.ModTime()
		}
		if err := catalogInto(st, path, buf, created); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func cmdList(args []string) error {
	fs, g := newFlagSet("list")
	scan := fs.Bool("scan", false, "Catalogue the records directory before listing")
	limit := fs.Int("n", 0, "Show at most n recordings")
	fs.Parse(args)

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if *scan {
		n, err := a.scanRecords(st, a.cfg.Storage.RecordsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Catalogued %d recording(s) from %s\n\n", n, a.cfg.Storage.RecordsDir)
	}

	recs, err := st.ListRecordings(*limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No recordings catalogued. Run 'slaunch list -scan' to index the records directory.")
		return nil
	}
	fmt.Printf("%-36s  %-19s  %7s  %8s  %s\n", "ID", "CREATED", "EVENTS", "LENGTH", "PATH")
	for _, r := range recs {
		fmt.Printf("%-36s  %-19s  %7d  %8s  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.EventCount,
			r.Duration.Round(100*time.Millisecond), r.Path)
	}
	return nil
}

func cmdHistory(args []string) error {
	fs, g := newFlagSet("history")
	limit := fs.Int("n", 20, "Show at most n replays")
	rec := fs.String("recording", "", "Only replays of this recording (ID or path)")
	fs.Parse(args)

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	filter, err := recordingFilter(st, *rec)
	if err != nil {
		return err
	}
	rows, err := st.ReplayHistory(filter, *limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No replays yet.")
		return nil
	}
	for _, r := range rows {
		repeat := fmt.Sprint(r.Repeat)
		if r.Repeat < 0 {
			repeat = "inf"
		}
		fmt.Printf("%s  %-9s  x%-4s %4.2gx  %3d rep  %5d ok  %3d skip  %3d fail  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.State, repeat, r.Speed,
			r.Repetitions, r.Executed, r.Skipped, r.Failed, r.Source)
		if r.Error != "" {
			fmt.Printf("    error: %s\n", r.Error)
		}
	}
	return nil
}

func cmdValidate(args []string) error {
	fs, g := newFlagSet("validate")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: slaunch validate <file>")
		os.Exit(1)
	}

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	path := fs.Arg(0)
	if strings.EqualFold(filepath.Ext(path), preset.Extension) {
		doc, err := preset.Load(path)
		if err != nil {
			return err
		}
		fmt.Printf("Preset %q: how_many=%d\n", doc.Title(), doc.HowMany)
		switch {
		case doc.Events != nil:
			fmt.Printf("  embedded recording: %d events, %.2fs\n", len(doc.Events), doc.Events.Duration())
			return nil
		case doc.RecordPath != "":
			path = doc.RecordFile(a.cfg.Storage.RecordsDir)
			fmt.Printf("  record_path: %s\n", path)
		default:
			return preset.ErrNoRecording
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	schemaErr := recording.Validate(data)
	buf, elemErrs, err := recording.Decode(data)
	if err != nil {
		return err
	}
	for _, e := range elemErrs {
		fmt.Printf("  %v (replaced with a void marker)\n", e)
	}
	if schemaErr != nil {
		fmt.Printf("  schema: %v\n", schemaErr)
	}

	fmt.Printf("%s: %d events, %.2fs, digest %s\n", path, len(buf), buf.Duration(), recording.Digest(data))
	for _, k := range []event.Kind{
		event.KindMouseMove, event.KindMouseClick, event.KindMouseScroll,
		event.KindKeyPress, event.KindKeyRelease, event.KindVoid,
	} {
		fmt.Printf("  %-12s %d\n", k, buf.Count(k))
	}
	if !buf.EndsWithVoid() {
		fmt.Println("  warning: recording does not end with a void marker")
	}
	if schemaErr != nil || len(elemErrs) > 0 {
		return errors.New("recording has format problems")
	}
	return nil
}

func cmdDevices(args []string) error {
	fs, g := newFlagSet("devices")
	fs.Parse(args)

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	infos, err := device.ListDevices()
	if err != nil {
		return err
	}
	for _, d := range infos {
		var tags []string
		if d.IsPointer {
			tags = append(tags, "pointer")
		}
		if d.HasKeys {
			tags = append(tags, "keys")
		}
		if d.IsVirtual {
			tags = append(tags, "virtual")
		}
		fmt.Printf("%-22s  %-40s  %s\n", d.Path, d.Name, strings.Join(tags, ","))
	}

	opts := a.cfg.DeviceOptions()
	fmt.Printf("\nReplay backend: %s (display %q, uinput %s)\n", opts.Backend, opts.Display, opts.UinputPath)
	return nil
}

func cmdConfig(args []string) error {
	fs, g := newFlagSet("config")
	format := fs.String("format", "toml", "Output format: toml, json, yaml")
	initFile := fs.Bool("init", false, "Create the configuration file with defaults unless it exists")
	write := fs.String("write", "", "Write the effective configuration to this file (format from extension)")
	fs.Parse(args)

	if *initFile {
		path, created, err := initConfig(g.configPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created %s\n", path)
		} else {
			fmt.Printf("%s already exists\n", path)
		}
		return nil
	}

	a, err := g.setup()
	if err != nil {
		return err
	}
	defer a.close()

	if *write != "" {
		if err := config.SaveConfig(a.cfg, *write); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *write)
		return nil
	}

	data, err := config.Encode(a.cfg, "."+*format)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// initConfig writes the defaults to path, or to the platform location when
// path is empty, unless a file is already there.
func initConfig(path string) (string, bool, error) {
	if path == "" {
		path = config.FindConfigFile()
	}
	_, created, err := config.LoadOrCreate(path)
	return path, created, err
}
