package config

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
)

func loadYAML(t *testing.T, src string) *Layout {
	t.Helper()
	var l Loader
	layout, err := l.LoadBytes("layout.yaml", []byte(src))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	return layout
}

func TestLoadYAMLBasic(t *testing.T) {
	layout := loadYAML(t, `
base: default
fall_through: true
layers:
  default:
    q: {emit: a}
    w: trans
    e: block
    caps: {layer-toggle: nav}
  nav:
    q: {emit: up}
`)

	if layout.Base != "default" {
		t.Errorf("Base = %q, want default", layout.Base)
	}
	if !layout.FallThrough {
		t.Error("FallThrough should be true")
	}
	if layout.ComposeKey != DefaultComposeKey {
		t.Errorf("ComposeKey = %v, want default", layout.ComposeKey)
	}

	def := layout.Layers["default"]
	if def == nil {
		t.Fatal("default layer missing")
	}
	if b := def[key.CodeQ]; b == nil || b.Kind != button.KindEmit || b.Code != key.CodeA {
		t.Errorf("q = %+v, want emit a", def[key.CodeQ])
	}
	if b := def[key.CodeW]; b == nil || b.Kind != button.KindTrans {
		t.Error("w should be trans")
	}
	if b := def[key.CodeE]; b == nil || b.Kind != button.KindBlock {
		t.Error("e should be block")
	}
	if b := def[key.CodeCapsLock]; b == nil || b.Kind != button.KindLayerToggle || b.Layer != "nav" {
		t.Error("caps should toggle nav")
	}
}

func TestLoadTOML(t *testing.T) {
	var l Loader
	layout, err := l.LoadBytes("layout.toml", []byte(`
base = "default"

[layers.default]
q = "a"
w = { emit = "b" }
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	def := layout.Layers["default"]
	if b := def[key.CodeQ]; b == nil || b.Kind != button.KindEmit || b.Code != key.CodeA {
		t.Error("bare key name should compile to emit")
	}
	if b := def[key.CodeW]; b == nil || b.Code != key.CodeB {
		t.Error("emit map form should compile")
	}
}

func TestLoadCompositeButtons(t *testing.T) {
	layout := loadYAML(t, `
base: default
compose_key: ralt
tap_hold_delay: 150
layers:
  default:
    a:
      tap-hold: {tap: {emit: a}, hold: {layer-toggle: default}}
    s:
      tap-next: {tap: {emit: s}, hold: {emit: lsft}}
    d:
      multi-tap:
        steps:
          - {gap: 120, button: {emit: d}}
        last: {emit: f}
    f:
      around: {outer: {emit: lsft}, inner: {emit: f}}
    g:
      tap-macro: [{emit: h}, {emit: i}]
    h:
      compose: [{emit: e}]
`)

	def := layout.Layers["default"]

	th := def[key.CodeA]
	if th.Kind != button.KindTapHold || th.Delay != 150*time.Millisecond {
		t.Errorf("tap-hold = %+v, want 150ms delay from file default", th)
	}
	if def[key.CodeS].Kind != button.KindTapNext {
		t.Error("tap-next did not compile")
	}

	mt := def[key.CodeD]
	if mt.Kind != button.KindMultiTap || len(mt.Steps) != 1 {
		t.Fatalf("multi-tap = %+v", mt)
	}
	if mt.Steps[0].Gap != 120*time.Millisecond {
		t.Errorf("step gap = %v, want 120ms", mt.Steps[0].Gap)
	}
	if mt.Last == nil || mt.Last.Code != key.CodeF {
		t.Error("multi-tap last missing")
	}

	if def[key.CodeF].Kind != button.KindAround {
		t.Error("around did not compile")
	}
	if m := def[key.CodeG]; m.Kind != button.KindTapMacro || len(m.Children) != 2 {
		t.Error("tap-macro did not compile")
	}

	cs := def[key.CodeH]
	if cs.Kind != button.KindComposeSeq || cs.Code != key.CodeRightAlt {
		t.Errorf("compose leader = %v, want ralt", cs.Code)
	}
}

func TestLoadAliases(t *testing.T) {
	layout := loadYAML(t, `
base: default
aliases:
  med: {tap-next: {tap: {emit: a}, hold: {layer-toggle: default}}}
layers:
  default:
    q: {ref: med}
    w: "@med"
`)

	def := layout.Layers["default"]
	if def[key.CodeQ].Kind != button.KindTapNext {
		t.Error("ref did not resolve")
	}
	if def[key.CodeQ] != def[key.CodeW] {
		t.Error("alias resolution should be memoized to one tree")
	}
}

func TestLoadAliasCycle(t *testing.T) {
	var l Loader
	_, err := l.LoadBytes("layout.yaml", []byte(`
base: default
aliases:
  a: {ref: b}
  b: {ref: a}
layers:
  default:
    q: {ref: a}
`))
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("alias cycle should fail with ResolveError, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no layers", "base: default\n"},
		{"no base", "layers:\n  default:\n    q: {emit: a}\n"},
		{"missing base layer", "base: other\nlayers:\n  default:\n    q: {emit: a}\n"},
		{"unknown key name", "base: d\nlayers:\n  d:\n    nosuch: {emit: a}\n"},
		{"unknown emit key", "base: d\nlayers:\n  d:\n    q: {emit: nosuch}\n"},
		{"unknown primitive", "base: d\nlayers:\n  d:\n    q: {frobnicate: a}\n"},
		{"dangling layer", "base: d\nlayers:\n  d:\n    q: {layer-toggle: nosuch}\n"},
		{"dangling alias", "base: d\nlayers:\n  d:\n    q: {ref: nosuch}\n"},
		{"script without factory", "base: d\nlayers:\n  d:\n    q: {script: 'function press(k) end'}\n"},
		{"unknown compose key", "base: d\ncompose_key: nosuch\nlayers:\n  d:\n    q: {emit: a}\n"},
	}

	var l Loader
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.LoadBytes("layout.yaml", []byte(tt.src)); err == nil {
				t.Error("LoadBytes() should fail")
			}
		})
	}
}

func TestLoadParseError(t *testing.T) {
	var l Loader
	_, err := l.LoadBytes("layout.yaml", []byte("base: [unclosed"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("malformed yaml should fail with ParseError, got %v", err)
	}
}

func TestLoadScriptFactory(t *testing.T) {
	var compiled []string
	l := Loader{Scripts: func(name, source string) (button.ScriptRunner, error) {
		compiled = append(compiled, source)
		return stubRunner{}, nil
	}}

	layout, err := l.LoadBytes("layout.yaml", []byte(`
base: d
layers:
  d:
    q: {script: "function press(k) key.tap('a') end"}
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if len(compiled) != 1 {
		t.Fatalf("factory compiled %d scripts, want 1", len(compiled))
	}
	if layout.Layers["d"][key.CodeQ].Kind != button.KindScript {
		t.Error("script button did not compile")
	}
}

type stubRunner struct{}

func (stubRunner) Press(button.Caps) error   { return nil }
func (stubRunner) Release(button.Caps) error { return nil }
