package app

import (
	"fmt"
	"time"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/keymap"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// loop owns the input side of the pipeline. Everything here runs on a
// single goroutine; button actions, hook actions and layer operations are
// all synchronous with pulls.
type loop struct {
	dispatch *pipeline.Dispatch
	input    *pipeline.InputStage
	sluice   *pipeline.Sluice
	emitter  *pipeline.Emitter
	keymap   *keymap.Keymap

	fallThrough bool

	log     *logging.Logger
	metrics *Metrics

	// swap, when non-nil, is checked between pulls to install a reloaded
	// keymap.
	swap func() (*keymap.Keymap, bool)
}

func (l *loop) run() error {
	for {
		if l.swap != nil {
			if km, fallThrough := l.swap(); km != nil {
				l.keymap = km
				l.fallThrough = fallThrough
				l.metrics.RecordReload()
				l.log.Info("layout reloaded, base layer %q", km.Base())
			}
		}

		ev, err := l.sluice.Pull()
		if err != nil {
			return err
		}
		l.metrics.RecordEvent()

		if ev.IsPress() {
			l.pressKey(ev)
		}
		// Releases are handled by the hooks their presses installed.

		if err := l.emitter.Err(); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
	}
}

// pressKey dispatches a press to the button resolved at that keycode and
// arms the release hook. The hook is registered before the next pull, so
// the release cannot race past it.
func (l *loop) pressKey(ev key.Event) {
	env := l.keymap.Lookup(ev.Code)
	if env == nil {
		l.unmapped(ev)
		return
	}

	k := &caps{loop: l, code: ev.Code, env: env}
	if !env.Press(k) {
		// Auto-repeat produces press/press/release; the second press is
		// dropped here. Marked for review: repeats could one day feed
		// the held button instead.
		l.metrics.RecordDuplicate()
		l.log.Debug("duplicate press of %s ignored", ev.Code)
		return
	}
	l.metrics.RecordPress()

	button.AwaitMy(k, key.Release, func(key.Event) pipeline.Verdict {
		env.Release(k)
		return pipeline.Catch
	})
}

// unmapped applies the fall-through policy to a press with no binding.
func (l *loop) unmapped(ev key.Event) {
	l.metrics.RecordUnmapped()
	if !l.fallThrough {
		l.log.Debug("dropping unmapped %s", ev.Code)
		return
	}

	l.emitter.Emit(ev)
	l.input.Hooks().Register(pipeline.Hook{
		Pred: pipeline.MatchKey(ev.Code, key.Release),
		Action: func(rev key.Event) pipeline.Verdict {
			l.emitter.Emit(rev)
			return pipeline.Catch
		},
	})
}

// caps binds the capability set to one physical key dispatch. A fresh
// value is created per press so hook closures keep the right key context.
type caps struct {
	loop *loop
	code key.Code
	env  *button.BEnv
}

var _ button.Caps = (*caps)(nil)

func (c *caps) MyBinding() *button.Button { return c.env.Binding() }

func (c *caps) MyCode() key.Code { return c.code }

func (c *caps) Emit(ev key.Event) { c.loop.emitter.Emit(ev) }

func (c *caps) Pause(d time.Duration) { time.Sleep(d) }

func (c *caps) Hold(block bool) {
	if block {
		c.loop.sluice.Block()
		return
	}
	c.loop.sluice.Unblock()
}

func (c *caps) RegisterInput(h pipeline.Hook) uint64 {
	return c.loop.input.Hooks().Register(h)
}

func (c *caps) RegisterOutput(h pipeline.Hook) uint64 {
	return c.loop.emitter.Hooks().Register(h)
}

func (c *caps) LayerOp(op button.LayerOp) { c.loop.keymap.Apply(op) }

func (c *caps) Inject(ev key.Event) { c.loop.dispatch.Inject(ev) }

func (c *caps) Log() *logging.Logger { return c.loop.log }
