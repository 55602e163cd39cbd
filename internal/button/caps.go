package button

import (
	"time"

	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// Caps is the capability set a button action runs against. The loop
// provides an implementation bound to the physical key being processed.
// Actions are synchronous; the only suspension points are Pause and the
// hook registrations, which defer work to upcoming events.
type Caps interface {
	// MyBinding returns the button bound to the key being processed.
	MyBinding() *Button

	// MyCode returns the physical keycode being processed.
	MyCode() key.Code

	// Emit writes an event to the output cell. Blocks on back-pressure.
	Emit(ev key.Event)

	// Pause delays the whole loop. Button actions on other keys do not
	// run in the meantime.
	Pause(d time.Duration)

	// Hold closes the sluice gate when true and opens it when false;
	// opening replays anything buffered ahead of newer source events.
	// Calls must balance.
	Hold(block bool)

	// RegisterInput installs a hook on the input stage.
	RegisterInput(h pipeline.Hook) uint64

	// RegisterOutput installs a hook on the emitter's output side.
	RegisterOutput(h pipeline.Hook) uint64

	// LayerOp applies an operation to the layer stack.
	LayerOp(op LayerOp)

	// Inject pushes a synthetic event onto the head of the rerun buffer.
	Inject(ev key.Event)

	// Log returns the logger actions report through.
	Log() *logging.Logger
}

// Await installs an untimed input hook.
func Await(k Caps, pred func(key.Event) bool, action func(key.Event) pipeline.Verdict) {
	k.RegisterInput(pipeline.Hook{Pred: pred, Action: action})
}

// AwaitMy installs an untimed input hook matching the processed key with
// the given switch.
func AwaitMy(k Caps, s key.Switch, action func(key.Event) pipeline.Verdict) {
	k.RegisterInput(pipeline.Hook{
		Pred:   pipeline.MatchKey(k.MyCode(), s),
		Action: action,
	})
}

// LayerOpKind tags a layer stack operation.
type LayerOpKind uint8

const (
	// OpPush pushes a layer onto the stack.
	OpPush LayerOpKind = iota
	// OpPop removes the topmost occurrence of a layer.
	OpPop
	// OpSetBase replaces the base layer.
	OpSetBase
	// OpAbout inspects a layer without changing the stack.
	OpAbout
)

// LayerOp is an operation on the layer stack.
type LayerOp struct {
	Kind  LayerOpKind
	Layer string

	// About receives whether the layer exists and how many bindings it
	// holds. Only used by OpAbout.
	About func(exists bool, size int)
}

// PushLayer returns an op that pushes the named layer.
func PushLayer(layer string) LayerOp {
	return LayerOp{Kind: OpPush, Layer: layer}
}

// PopLayer returns an op that removes the topmost occurrence of the named
// layer.
func PopLayer(layer string) LayerOp {
	return LayerOp{Kind: OpPop, Layer: layer}
}

// SetBaseLayer returns an op that replaces the base layer.
func SetBaseLayer(layer string) LayerOp {
	return LayerOp{Kind: OpSetBase, Layer: layer}
}

// AboutLayer returns an op that inspects the named layer.
func AboutLayer(layer string, about func(exists bool, size int)) LayerOp {
	return LayerOp{Kind: OpAbout, Layer: layer, About: about}
}
