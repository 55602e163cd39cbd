// Package main is the entry point for the keywarp daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/keywarp/internal/app"
	"github.com/dshills/keywarp/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	app app.Options

	devicePath string
	deviceName string
	dryRun     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Devices are released on all exit paths, including signals: the
	// shutdown path below closes them, which also unblocks the loop.
	defer application.Shutdown()

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(opts.app.LogLevel),
		Prefix: "keywarp",
	})
	src, sink, err := openDevices(opts, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := application.SetDevices(src, sink); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		application.Shutdown()
	}()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.app.ConfigPath, "config", "", "Path to the layout file")
	flag.StringVar(&opts.app.ConfigPath, "c", "", "Path to the layout file (shorthand)")
	flag.StringVar(&opts.devicePath, "device", "", "Keyboard event device (e.g. /dev/input/event3)")
	flag.StringVar(&opts.deviceName, "name", "keywarp virtual keyboard", "Name of the virtual output device")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Exercise the layout interactively instead of remapping a device")
	flag.BoolVar(&opts.app.Watch, "watch", false, "Reload the layout when the file changes")
	flag.StringVar(&opts.app.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.app.Debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "keywarp - keyboard remapping daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: keywarp -config layout.yaml -device /dev/input/eventN [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("keywarp %s (%s)\n", version, commit)
		os.Exit(0)
	}
	if opts.app.ConfigPath == "" {
		fmt.Fprintln(os.Stderr, "Error: a layout file is required (-config)")
		flag.Usage()
		os.Exit(1)
	}
	if !opts.dryRun && opts.devicePath == "" {
		fmt.Fprintln(os.Stderr, "Error: a keyboard device is required (-device), or use -dry-run")
		flag.Usage()
		os.Exit(1)
	}
	return opts
}
