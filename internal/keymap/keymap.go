// Package keymap maintains the layer table and the active layer stack, and
// resolves keycodes to button state environments through transparent
// bindings.
package keymap

import (
	"fmt"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// Layer is one named keycode-to-binding table. Each binding owns its BEnv
// for the life of the process.
type Layer struct {
	name     string
	bindings map[key.Code]*button.BEnv
}

// Name returns the layer's tag.
func (l *Layer) Name() string { return l.name }

// Size returns the number of bindings in the layer.
func (l *Layer) Size() int { return len(l.bindings) }

// Get returns the binding environment for a code, or nil.
func (l *Layer) Get(c key.Code) *button.BEnv { return l.bindings[c] }

// Keymap is the layer table plus the stack of active layers. The stack is
// never empty; its tail is always the base layer. Resolution walks the
// stack head to tail, skipping transparent bindings.
//
// All state is owned by the loop goroutine.
type Keymap struct {
	layers map[string]*Layer
	stack  []string
	log    *logging.Logger
}

// New builds a keymap from button tables. The base layer must exist.
func New(layers map[string]map[key.Code]*button.Button, base string, log *logging.Logger) (*Keymap, error) {
	if _, ok := layers[base]; !ok {
		return nil, fmt.Errorf("base layer %q not defined", base)
	}

	m := &Keymap{
		layers: make(map[string]*Layer, len(layers)),
		stack:  []string{base},
		log:    log.WithComponent("keymap"),
	}
	for name, buttons := range layers {
		layer := &Layer{
			name:     name,
			bindings: make(map[key.Code]*button.BEnv, len(buttons)),
		}
		for code, b := range buttons {
			layer.bindings[code] = button.NewBEnv(b)
		}
		m.layers[name] = layer
	}
	return m, nil
}

// Lookup resolves a keycode through the stack: the first non-transparent
// binding wins, or nil if every layer is exhausted.
func (m *Keymap) Lookup(c key.Code) *button.BEnv {
	for _, tag := range m.stack {
		layer := m.layers[tag]
		if layer == nil {
			continue
		}
		env := layer.Get(c)
		if env == nil || env.Binding().Kind == button.KindTrans {
			continue
		}
		return env
	}
	return nil
}

// Push activates a layer on top of the stack. Pushing an unknown layer is
// reported and ignored. The same layer may be pushed more than once;
// re-entrant toggles pop their own push.
func (m *Keymap) Push(tag string) {
	if _, ok := m.layers[tag]; !ok {
		m.log.Warn("push of unknown layer %q", tag)
		return
	}
	m.stack = append([]string{tag}, m.stack...)
}

// Pop removes the topmost occurrence of a layer. The base position is
// never popped. Popping a layer not on the stack is reported and ignored.
func (m *Keymap) Pop(tag string) {
	for i := 0; i < len(m.stack)-1; i++ {
		if m.stack[i] == tag {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			return
		}
	}
	m.log.Warn("pop of layer %q not on stack", tag)
}

// SetBase replaces the tail of the stack. Setting an unknown layer is
// reported and ignored; setting the current base re-applies without error.
func (m *Keymap) SetBase(tag string) {
	if _, ok := m.layers[tag]; !ok {
		m.log.Warn("set-base of unknown layer %q", tag)
		return
	}
	m.stack[len(m.stack)-1] = tag
}

// Base returns the current base layer tag.
func (m *Keymap) Base() string { return m.stack[len(m.stack)-1] }

// Stack returns a copy of the active stack, head first.
func (m *Keymap) Stack() []string {
	out := make([]string, len(m.stack))
	copy(out, m.stack)
	return out
}

// Apply dispatches a layer operation.
func (m *Keymap) Apply(op button.LayerOp) {
	switch op.Kind {
	case button.OpPush:
		m.Push(op.Layer)
	case button.OpPop:
		m.Pop(op.Layer)
	case button.OpSetBase:
		m.SetBase(op.Layer)
	case button.OpAbout:
		if op.About == nil {
			return
		}
		layer, ok := m.layers[op.Layer]
		if !ok {
			op.About(false, 0)
			return
		}
		op.About(true, layer.Size())
	default:
		m.log.Warn("unknown layer op %d", uint8(op.Kind))
	}
}
