package button

import (
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/pipeline"
)

// pressAction runs b's press semantics and returns the matching release
// action, or nil when the release has nothing left to do. Branch decisions
// made later by hooks are carried to the release through the closure.
func pressAction(k Caps, b *Button) func(Caps) {
	switch b.Kind {
	case KindEmit:
		k.Emit(key.NewPress(b.Code))
		code := b.Code
		return func(k Caps) { k.Emit(key.NewRelease(code)) }

	case KindLayerToggle:
		k.LayerOp(PushLayer(b.Layer))
		layer := b.Layer
		return func(k Caps) { k.LayerOp(PopLayer(layer)) }

	case KindLayerSwitch:
		k.LayerOp(SetBaseLayer(b.Layer))
		return nil

	case KindTapNext:
		return pressTapNext(k, b)

	case KindTapHold:
		return pressTapHold(k, b)

	case KindMultiTap:
		pressMultiTap(k, b, 0)
		return nil

	case KindAround:
		relOuter := pressAction(k, b.Outer)
		relInner := pressAction(k, b.Inner)
		return func(k Caps) {
			if relInner != nil {
				relInner(k)
			}
			if relOuter != nil {
				relOuter(k)
			}
		}

	case KindTapMacro:
		runMacro(k, b.Children, b.Delay)
		return nil

	case KindComposeSeq:
		tapPair(k, Emit(b.Code))
		runMacro(k, b.Children, b.Delay)
		return nil

	case KindTrans:
		// The keymap resolves transparency away; reaching here means a
		// layer bound trans with nothing beneath it.
		k.Log().Warn("transparent button reached runtime for %s", k.MyCode())
		return nil

	case KindBlock:
		return nil

	case KindScript:
		if err := b.Run.Press(k); err != nil {
			k.Log().Warn("script press for %s: %v", k.MyCode(), err)
			return nil
		}
		run := b.Run
		return func(k Caps) {
			if err := run.Release(k); err != nil {
				k.Log().Warn("script release for %s: %v", k.MyCode(), err)
			}
		}

	default:
		k.Log().Warn("unknown button kind %d for %s", uint8(b.Kind), k.MyCode())
		return nil
	}
}

// tapPair runs a full press/release pair of b.
func tapPair(k Caps, b *Button) {
	if rel := pressAction(k, b); rel != nil {
		rel(k)
	}
}

// runMacro taps each child in order, pausing between taps when the macro
// carries a delay.
func runMacro(k Caps, children []*Button, delay time.Duration) {
	for i, child := range children {
		if i > 0 && delay > 0 {
			k.Pause(delay)
		}
		tapPair(k, child)
	}
}

// pressTapNext gates the stream and decides on the very next event: my
// own release means tap, anything else means hold. Either way the gate
// reopens before the event continues, so buffered input replays ahead of
// newer events.
func pressTapNext(k Caps, b *Button) func(Caps) {
	var relHold func(Caps)
	myCode := k.MyCode()
	tap, hold := b.Tap, b.Hold

	k.Hold(true)
	Await(k,
		func(key.Event) bool { return true },
		func(ev key.Event) pipeline.Verdict {
			if ev.Concerns(myCode) && ev.IsRelease() {
				tapPair(k, tap)
			} else {
				relHold = pressAction(k, hold)
			}
			k.Hold(false)
			return pipeline.NoCatch
		})

	return func(k Caps) {
		if relHold != nil {
			relHold(k)
		}
	}
}

// pressTapHold gates the stream under a deadline: my release within the
// delay means tap, the deadline elapsing means hold. The timeout path
// reopens the gate so everything buffered during the decision replays
// after the hold press.
func pressTapHold(k Caps, b *Button) func(Caps) {
	var relHold func(Caps)
	tap, hold := b.Tap, b.Hold

	k.Hold(true)
	k.RegisterInput(pipeline.Hook{
		Pred: pipeline.MatchKey(k.MyCode(), key.Release),
		Action: func(ev key.Event) pipeline.Verdict {
			tapPair(k, tap)
			k.Hold(false)
			return pipeline.NoCatch
		},
		Deadline: time.Now().Add(b.Delay),
		OnTimeout: func() {
			relHold = pressAction(k, hold)
			k.Hold(false)
		},
	})

	return func(k Caps) {
		if relHold != nil {
			relHold(k)
		}
	}
}

// pressMultiTap arms step i of a multi-tap: another press of my key within
// the gap advances to the next step and is consumed at the hook layer;
// the gap elapsing taps the current step's button. Consuming every step
// presses the terminal button and holds it until my release.
func pressMultiTap(k Caps, b *Button, i int) {
	if i >= len(b.Steps) {
		rel := pressAction(k, b.Last)
		AwaitMy(k, key.Release, func(key.Event) pipeline.Verdict {
			if rel != nil {
				rel(k)
			}
			return pipeline.Catch
		})
		return
	}

	step := b.Steps[i]
	k.RegisterInput(pipeline.Hook{
		Pred: pipeline.MatchKey(k.MyCode(), key.Press),
		Action: func(key.Event) pipeline.Verdict {
			pressMultiTap(k, b, i+1)
			return pipeline.Catch
		},
		Deadline:  time.Now().Add(step.Gap),
		OnTimeout: func() { tapPair(k, step.Button) },
	})
}
