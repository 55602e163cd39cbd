package keymap

import (
	"testing"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

func testKeymap(t *testing.T) *Keymap {
	t.Helper()
	layers := map[string]map[key.Code]*button.Button{
		"base": {
			key.CodeQ: button.Emit(key.CodeA),
			key.CodeW: button.Emit(key.CodeB),
		},
		"nav": {
			key.CodeQ: button.Emit(key.CodeZ),
			key.CodeW: button.Trans(),
		},
	}
	m, err := New(layers, "base", logging.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNewRejectsUnknownBase(t *testing.T) {
	_, err := New(map[string]map[key.Code]*button.Button{"base": {}}, "missing", logging.Discard())
	if err == nil {
		t.Fatal("New() should reject an undefined base layer")
	}
}

func TestLookupBase(t *testing.T) {
	m := testKeymap(t)

	env := m.Lookup(key.CodeQ)
	if env == nil || env.Binding().Code != key.CodeA {
		t.Fatalf("Lookup(q) should resolve on base to emit a")
	}
	if m.Lookup(key.CodeE) != nil {
		t.Error("Lookup of an unbound code should be nil")
	}
}

func TestLookupThroughStack(t *testing.T) {
	m := testKeymap(t)
	m.Push("nav")

	if env := m.Lookup(key.CodeQ); env == nil || env.Binding().Code != key.CodeZ {
		t.Error("Lookup(q) should resolve on the pushed layer")
	}
	// Transparent bindings fall through to lower layers.
	if env := m.Lookup(key.CodeW); env == nil || env.Binding().Code != key.CodeB {
		t.Error("Lookup(w) should fall through trans to base")
	}
}

func TestPushUnknownIgnored(t *testing.T) {
	m := testKeymap(t)
	m.Push("nosuch")
	if got := len(m.Stack()); got != 1 {
		t.Errorf("stack depth = %d after bad push, want 1", got)
	}
}

func TestPopTopmostOccurrence(t *testing.T) {
	m := testKeymap(t)
	m.Push("nav")
	m.Push("nav")

	m.Pop("nav")
	stack := m.Stack()
	if len(stack) != 2 || stack[0] != "nav" || stack[1] != "base" {
		t.Fatalf("stack = %v, want [nav base]", stack)
	}

	m.Pop("nav")
	stack = m.Stack()
	if len(stack) != 1 || stack[0] != "base" {
		t.Fatalf("stack = %v, want [base]", stack)
	}

	// Popping a layer not on the stack is reported and ignored.
	m.Pop("nav")
	if len(m.Stack()) != 1 {
		t.Error("pop of absent layer changed the stack")
	}
}

func TestPopNeverRemovesBase(t *testing.T) {
	m := testKeymap(t)
	m.Pop("base")
	if got := m.Base(); got != "base" {
		t.Errorf("Base() = %q after pop, want base", got)
	}
}

func TestSetBase(t *testing.T) {
	m := testKeymap(t)
	m.Push("nav")

	m.SetBase("nav")
	stack := m.Stack()
	if stack[len(stack)-1] != "nav" {
		t.Errorf("stack tail = %q, want nav", stack[len(stack)-1])
	}
	if len(stack) != 2 {
		t.Errorf("stack depth = %d, want 2 (pushed layer untouched)", len(stack))
	}

	// Re-applying the current base is not an error.
	m.SetBase("nav")
	if m.Base() != "nav" {
		t.Error("re-applying the base changed it")
	}

	m.SetBase("nosuch")
	if m.Base() != "nav" {
		t.Error("unknown base replaced the current one")
	}
}

func TestApply(t *testing.T) {
	m := testKeymap(t)

	m.Apply(button.PushLayer("nav"))
	if m.Stack()[0] != "nav" {
		t.Error("Apply(push) did not push")
	}
	m.Apply(button.PopLayer("nav"))
	if len(m.Stack()) != 1 {
		t.Error("Apply(pop) did not pop")
	}
	m.Apply(button.SetBaseLayer("nav"))
	if m.Base() != "nav" {
		t.Error("Apply(set-base) did not switch")
	}

	var exists bool
	var size int
	m.Apply(button.AboutLayer("base", func(ok bool, n int) { exists, size = ok, n }))
	if !exists || size != 2 {
		t.Errorf("About(base) = %v/%d, want true/2", exists, size)
	}
	m.Apply(button.AboutLayer("nosuch", func(ok bool, n int) { exists = ok }))
	if exists {
		t.Error("About of unknown layer reported it exists")
	}
}
