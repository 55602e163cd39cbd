package app

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/keywarp/internal/config"
	"github.com/dshills/keywarp/internal/keymap"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
	"github.com/dshills/keywarp/internal/script"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the layout file.
	ConfigPath string

	// LogLevel sets the logging verbosity.
	LogLevel string

	// Debug enables debug logging regardless of LogLevel.
	Debug bool

	// Watch reloads the layout when the file changes.
	Watch bool

	// Logger overrides the default logger. Used by tests.
	Logger *logging.Logger
}

// Application wires the devices, pipeline, keymap and layout together and
// runs the loop.
type Application struct {
	opts Options

	log     *logging.Logger
	metrics *Metrics

	loader  *config.Loader
	scripts *script.Engine
	layout  *config.Layout

	source pipeline.KeySource
	sink   pipeline.KeySink

	watcher *config.Watcher
	pending atomic.Pointer[config.Layout]

	running      atomic.Bool
	shutdownOnce sync.Once
}

// New creates an application and loads its layout.
func New(opts Options) (*Application, error) {
	log := opts.Logger
	if log == nil {
		cfg := logging.DefaultConfig()
		cfg.Level = logging.ParseLevel(opts.LogLevel)
		if opts.Debug {
			cfg.Level = logging.LevelDebug
		}
		log = logging.New(cfg)
	}

	a := &Application{
		opts:    opts,
		log:     log,
		metrics: NewMetrics(),
		scripts: script.NewEngine(log),
	}
	a.loader = &config.Loader{Scripts: a.scripts.Factory()}

	layout, err := a.loader.Load(opts.ConfigPath)
	if err != nil {
		a.scripts.Close()
		return nil, fmt.Errorf("loading layout: %w", err)
	}
	a.layout = layout

	return a, nil
}

// NewWithLayout creates an application around an already resolved layout.
// Used by tests and the dry-run tooling.
func NewWithLayout(layout *config.Layout, log *logging.Logger) *Application {
	if log == nil {
		log = logging.Discard()
	}
	return &Application{
		log:     log,
		metrics: NewMetrics(),
		scripts: script.NewEngine(log),
		layout:  layout,
	}
}

// SetDevices attaches the key source and sink. Must be called before Run.
func (a *Application) SetDevices(src pipeline.KeySource, sink pipeline.KeySink) error {
	if a.running.Load() {
		return ErrAlreadyRunning
	}
	a.source = src
	a.sink = sink
	return nil
}

// Layout returns the active layout.
func (a *Application) Layout() *config.Layout { return a.layout }

// Metrics returns the loop metrics.
func (a *Application) Metrics() *Metrics { return a.metrics }

// Run builds the pipeline and processes events until the source fails or
// is closed, or the sink fails. A source closed by Shutdown returns nil.
func (a *Application) Run() error {
	if a.source == nil || a.sink == nil {
		return ErrNoDevices
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	km, err := keymap.New(a.layout.Layers, a.layout.Base, a.log)
	if err != nil {
		return fmt.Errorf("building keymap: %w", err)
	}

	dispatch := pipeline.NewDispatch(a.source, a.log)
	defer dispatch.Close()

	inputStage := pipeline.NewInputStage(pipeline.NewHookSet(a.log), dispatch)
	sluice := pipeline.NewSluice(inputStage, dispatch, a.log)
	emitter := pipeline.NewEmitter(a.sink, pipeline.NewHookSet(a.log), a.log)

	if a.opts.Watch && a.opts.ConfigPath != "" {
		w, err := config.NewWatcher(a.opts.ConfigPath, a.reload, a.log)
		if err != nil {
			a.log.Warn("layout watch disabled: %v", err)
		} else {
			a.watcher = w
			defer a.watcher.Close()
		}
	}

	l := &loop{
		dispatch:    dispatch,
		input:       inputStage,
		sluice:      sluice,
		emitter:     emitter,
		keymap:      km,
		fallThrough: a.layout.FallThrough,
		log:         a.log,
		metrics:     a.metrics,
		swap:        a.takePending,
	}

	a.log.Info("pipeline running, base layer %q", km.Base())
	runErr := l.run()

	// Pending hooks are dropped on shutdown without firing timeouts.
	inputStage.Hooks().Clear()
	emitter.Hooks().Clear()
	if err := emitter.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("sink: %w", err)
	}

	snap := a.metrics.Snapshot()
	a.log.Debug("loop done: events=%d presses=%d duplicates=%d unmapped=%d reloads=%d uptime=%s",
		snap.Events, snap.Presses, snap.Duplicates, snap.Unmapped, snap.Reloads, snap.Uptime)

	if errors.Is(runErr, pipeline.ErrSourceClosed) {
		return nil
	}
	return runErr
}

// reload loads the layout file again and stages it for the loop. A layout
// that fails to load keeps the current one.
func (a *Application) reload() {
	layout, err := a.loader.Load(a.opts.ConfigPath)
	if err != nil {
		a.log.Warn("layout reload failed, keeping current: %v", err)
		return
	}
	a.layout = layout
	a.pending.Store(layout)
}

// takePending hands a staged layout to the loop as a fresh keymap. Runs on
// the loop goroutine.
func (a *Application) takePending() (*keymap.Keymap, bool) {
	layout := a.pending.Swap(nil)
	if layout == nil {
		return nil, false
	}
	km, err := keymap.New(layout.Layers, layout.Base, a.log)
	if err != nil {
		a.log.Warn("reloaded layout rejected: %v", err)
		return nil, false
	}
	return km, layout.FallThrough
}

// Shutdown stops the loop by closing the devices and releases the script
// engine. Safe to call more than once and from any goroutine.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		if c, ok := a.source.(io.Closer); ok {
			_ = c.Close()
		}
		if c, ok := a.sink.(io.Closer); ok {
			_ = c.Close()
		}
		a.scripts.Close()
	})
}
