package button

// BEnv is the per-binding state environment: the bound button, whether the
// key is currently down, and the pending release action. One BEnv exists
// for every (layer, keycode) binding, created when the keymap is built.
//
// Press and Release enforce alternation: a press while down and a release
// while up are refused, which is how duplicate presses from auto-repeat
// are swallowed.
type BEnv struct {
	binding *Button
	down    bool
	release func(Caps)
}

// NewBEnv creates the state environment for a binding.
func NewBEnv(b *Button) *BEnv {
	return &BEnv{binding: b}
}

// Binding returns the bound button.
func (e *BEnv) Binding() *Button { return e.binding }

// Down reports whether the key is currently in the pressed state.
func (e *BEnv) Down() bool { return e.down }

// Press runs the binding's press action. Returns false without running
// anything if the key is already down.
func (e *BEnv) Press(k Caps) bool {
	if e.down {
		return false
	}
	e.down = true
	e.release = pressAction(k, e.binding)
	return true
}

// Release runs the press's pending release action. Returns false without
// running anything if the key is not down.
func (e *BEnv) Release(k Caps) bool {
	if !e.down {
		return false
	}
	e.down = false
	rel := e.release
	e.release = nil
	if rel != nil {
		rel(k)
	}
	return true
}
