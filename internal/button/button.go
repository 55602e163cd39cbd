// Package button implements the button behavior tree and its runtime: the
// per-binding state environment, the capability set actions run against,
// and the press/release semantics of every primitive.
package button

import (
	"fmt"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
)

// Kind tags a button variant. The runtime dispatches on the tag.
type Kind uint8

const (
	// KindEmit emits its keycode on press and release.
	KindEmit Kind = iota
	// KindLayerToggle activates a layer while held.
	KindLayerToggle
	// KindLayerSwitch replaces the base layer on press.
	KindLayerSwitch
	// KindTapNext resolves tap or hold on the next event.
	KindTapNext
	// KindTapHold resolves tap or hold on a deadline.
	KindTapHold
	// KindMultiTap counts consecutive taps within gaps.
	KindMultiTap
	// KindAround wraps an inner button in an outer one.
	KindAround
	// KindTapMacro taps each child in order.
	KindTapMacro
	// KindComposeSeq taps a compose leader, then each child.
	KindComposeSeq
	// KindTrans inherits the binding from lower layers.
	KindTrans
	// KindBlock consumes one press/release cycle without emitting.
	KindBlock
	// KindScript runs user script functions on press and release.
	KindScript
)

// String returns the layout-file name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmit:
		return "emit"
	case KindLayerToggle:
		return "layer-toggle"
	case KindLayerSwitch:
		return "layer-switch"
	case KindTapNext:
		return "tap-next"
	case KindTapHold:
		return "tap-hold"
	case KindMultiTap:
		return "multi-tap"
	case KindAround:
		return "around"
	case KindTapMacro:
		return "tap-macro"
	case KindComposeSeq:
		return "compose"
	case KindTrans:
		return "trans"
	case KindBlock:
		return "block"
	case KindScript:
		return "script"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// TapStep is one stage of a multi-tap: the button tapped if the sequence
// ends here, and how long to wait for the next tap.
type TapStep struct {
	Gap    time.Duration
	Button *Button
}

// ScriptRunner runs user-defined press and release actions. The script
// engine provides implementations; the runtime only calls through this
// interface.
type ScriptRunner interface {
	Press(k Caps) error
	Release(k Caps) error
}

// Button is a node in the behavior tree. Exactly the fields relevant to
// the Kind are set; alias references are resolved away at load time, so
// the runtime never sees indirection.
type Button struct {
	Kind Kind

	// Code is the emitted keycode for KindEmit and the compose leader for
	// KindComposeSeq.
	Code key.Code

	// Layer names the target layer for the layer kinds.
	Layer string

	// Delay is the hold deadline for KindTapHold and the optional
	// inter-tap pause for KindTapMacro and KindComposeSeq.
	Delay time.Duration

	// Tap and Hold are the two branches of KindTapNext and KindTapHold.
	Tap  *Button
	Hold *Button

	// Steps and Last drive KindMultiTap.
	Steps []TapStep
	Last  *Button

	// Outer and Inner are the two halves of KindAround.
	Outer *Button
	Inner *Button

	// Children are the macro bodies of KindTapMacro and KindComposeSeq.
	Children []*Button

	// Run is the handler for KindScript.
	Run ScriptRunner
}

// Emit creates a button that emits the given keycode.
func Emit(c key.Code) *Button {
	return &Button{Kind: KindEmit, Code: c}
}

// LayerToggle creates a button that holds the given layer active.
func LayerToggle(layer string) *Button {
	return &Button{Kind: KindLayerToggle, Layer: layer}
}

// LayerSwitch creates a button that makes the given layer the base.
func LayerSwitch(layer string) *Button {
	return &Button{Kind: KindLayerSwitch, Layer: layer}
}

// TapNext creates a button that taps if its own release is the next event
// and holds otherwise.
func TapNext(tap, hold *Button) *Button {
	return &Button{Kind: KindTapNext, Tap: tap, Hold: hold}
}

// TapHold creates a button that taps if released within delay and holds
// otherwise.
func TapHold(delay time.Duration, tap, hold *Button) *Button {
	return &Button{Kind: KindTapHold, Delay: delay, Tap: tap, Hold: hold}
}

// MultiTap creates a button that counts consecutive taps within the step
// gaps; last is held if every step is consumed.
func MultiTap(steps []TapStep, last *Button) *Button {
	return &Button{Kind: KindMultiTap, Steps: steps, Last: last}
}

// Around creates a button that presses outer, then inner, and releases in
// reverse order.
func Around(outer, inner *Button) *Button {
	return &Button{Kind: KindAround, Outer: outer, Inner: inner}
}

// TapMacro creates a button that taps each child in order on press.
func TapMacro(children ...*Button) *Button {
	return &Button{Kind: KindTapMacro, Children: children}
}

// TapMacroDelay is TapMacro with a pause between taps.
func TapMacroDelay(delay time.Duration, children ...*Button) *Button {
	return &Button{Kind: KindTapMacro, Delay: delay, Children: children}
}

// ComposeSeq creates a button that taps the compose leader, then each
// child in order.
func ComposeSeq(leader key.Code, children ...*Button) *Button {
	return &Button{Kind: KindComposeSeq, Code: leader, Children: children}
}

// Trans creates a transparent button; the keymap resolves through it to
// lower layers.
func Trans() *Button {
	return &Button{Kind: KindTrans}
}

// Block creates a button that consumes one press/release cycle.
func Block() *Button {
	return &Button{Kind: KindBlock}
}

// Script creates a button backed by a script runner.
func Script(run ScriptRunner) *Button {
	return &Button{Kind: KindScript, Run: run}
}

// Validate checks the tree for structural problems: missing branches,
// empty macros, nil script runners.
func (b *Button) Validate() error {
	if b == nil {
		return fmt.Errorf("nil button")
	}
	switch b.Kind {
	case KindEmit, KindTrans, KindBlock:
		return nil
	case KindLayerToggle, KindLayerSwitch:
		if b.Layer == "" {
			return fmt.Errorf("%s: empty layer name", b.Kind)
		}
		return nil
	case KindTapNext, KindTapHold:
		if b.Kind == KindTapHold && b.Delay <= 0 {
			return fmt.Errorf("tap-hold: non-positive delay")
		}
		for _, child := range []*Button{b.Tap, b.Hold} {
			if child == nil {
				return fmt.Errorf("%s: missing branch", b.Kind)
			}
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	case KindMultiTap:
		if len(b.Steps) == 0 {
			return fmt.Errorf("multi-tap: no steps")
		}
		for _, s := range b.Steps {
			if s.Gap <= 0 {
				return fmt.Errorf("multi-tap: non-positive gap")
			}
			if err := s.Button.Validate(); err != nil {
				return err
			}
		}
		if b.Last == nil {
			return fmt.Errorf("multi-tap: missing terminal button")
		}
		return b.Last.Validate()
	case KindAround:
		for _, child := range []*Button{b.Outer, b.Inner} {
			if child == nil {
				return fmt.Errorf("around: missing half")
			}
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	case KindTapMacro, KindComposeSeq:
		if len(b.Children) == 0 {
			return fmt.Errorf("%s: empty body", b.Kind)
		}
		for _, child := range b.Children {
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	case KindScript:
		if b.Run == nil {
			return fmt.Errorf("script: no runner")
		}
		return nil
	default:
		return fmt.Errorf("unknown button kind %d", uint8(b.Kind))
	}
}
