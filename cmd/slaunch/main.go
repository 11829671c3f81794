// slaunch records global mouse and keyboard input and replays it.
//
//	slaunch record              Record until the stop gesture or Ctrl-C
//	slaunch replay <file>       Replay a recording or recorded preset
//	slaunch validate <file>     Check a recording or preset
//	slaunch list                List catalogued recordings
//	slaunch history             Show past replays
//	slaunch devices             List evdev input devices
//	slaunch config              Print or write the configuration
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"slaunch/internal/config"
	"slaunch/internal/logging"
	"slaunch/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "record":
		err = cmdRecord(os.Args[2:])
	case "replay":
		err = cmdReplay(os.Args[2:])
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "list":
		err = cmdList(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:])
	case "devices":
		err = cmdDevices(os.Args[2:])
	case "config":
		err = cmdConfig(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`slaunch - record and replay desktop input

USAGE:
    slaunch <command> [options]

COMMANDS:
    record              Record input until the stop gesture or Ctrl-C
    replay <file>       Replay a recording (.json) or recorded preset (.slaunch)
    validate <file>     Check a recording or preset for format errors
    list                List catalogued recordings
    history             Show past replays
    devices             List evdev input devices
    config              Print or write the configuration
    help                Show this help message

STOP GESTURE:
    Hold Shift together with the left mouse button for two seconds.

Every command accepts -config <path> and -v.`)
}

// app holds what every command needs after flag parsing.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	logger  *slog.Logger
	loader  *config.Loader
	verbose bool
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func newFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "", "Configuration file (default: platform config dir)")
	fs.BoolVar(&g.verbose, "v", false, "Debug logging")
	return fs, g
}

func (g *globalFlags) setup() (*app, error) {
	path := g.configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	lc := cfg.LoggerConfig()
	if g.verbose {
		lc.Level = logging.LevelDebug
	}
	l, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(l)
	return &app{cfg: cfg, log: l, logger: l.Logger, loader: loader, verbose: g.verbose}, nil
}

// component returns the logger for one subsystem.
func (a *app) component(name string) *slog.Logger {
	return a.log.WithComponent(name).Logger
}

// watchConfig follows edits to the configuration file until ctx ends. Only
// the log level applies to a running command, and -v pins it at debug.
func (a *app) watchConfig(ctx context.Context) {
	logger := a.component("config")
	a.loader.OnChange(func(_, cfg *config.Config) {
		if a.verbose {
			return
		}
		if lvl := cfg.LoggerConfig().Level; lvl != a.log.Level() {
			a.log.SetLevel(lvl)
			logger.Info("log level changed", "level", lvl.String())
		}
	})
	if err := a.loader.Watch(ctx); err != nil {
		logger.Debug("config watch unavailable", "error", err)
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-a.loader.Errors():
				logger.Warn("config reload failed", "error", err)
			}
		}
	}()
}

func (a *app) close() {
	if a.loader != nil {
		a.loader.Close()
	}
	a.log.Close()
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Storage.DatabasePath)
}
