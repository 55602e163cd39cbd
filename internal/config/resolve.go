package config

import (
	"fmt"
	"time"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
)

// compiler turns a parsed raw layout into resolved button trees. Aliases
// resolve exactly once each; a reference chain that revisits an alias in
// progress is a cycle and fails the load.
type compiler struct {
	set     settings
	aliases map[string]any
	scripts ScriptFactory

	resolved  map[string]*button.Button
	resolving map[string]bool
}

func compile(raw *rawLayout, scripts ScriptFactory) (*Layout, error) {
	set := defaultSettings()
	if raw.TapHoldMS > 0 {
		set.tapHoldDelay = time.Duration(raw.TapHoldMS) * time.Millisecond
	}
	if raw.MultiTapMS > 0 {
		set.multiTapGap = time.Duration(raw.MultiTapMS) * time.Millisecond
	}
	if raw.MacroMS > 0 {
		set.macroDelay = time.Duration(raw.MacroMS) * time.Millisecond
	}
	if raw.ComposeKey != "" {
		code, ok := key.Lookup(raw.ComposeKey)
		if !ok {
			return nil, &ResolveError{Where: "compose_key", Message: fmt.Sprintf("unknown key %q", raw.ComposeKey)}
		}
		set.composeKey = code
	}

	if len(raw.Layers) == 0 {
		return nil, &ResolveError{Where: "layers", Message: "no layers defined"}
	}
	if raw.Base == "" {
		return nil, &ResolveError{Where: "base", Message: "no base layer named"}
	}
	if _, ok := raw.Layers[raw.Base]; !ok {
		return nil, &ResolveError{Where: "base", Message: fmt.Sprintf("base layer %q not defined", raw.Base)}
	}

	c := &compiler{
		set:       set,
		aliases:   raw.Aliases,
		scripts:   scripts,
		resolved:  make(map[string]*button.Button, len(raw.Aliases)),
		resolving: make(map[string]bool),
	}

	layout := &Layout{
		Base:        raw.Base,
		FallThrough: raw.FallThrough,
		ComposeKey:  set.composeKey,
		Layers:      make(map[string]map[key.Code]*button.Button, len(raw.Layers)),
	}
	for name, bindings := range raw.Layers {
		layer := make(map[key.Code]*button.Button, len(bindings))
		for keyName, expr := range bindings {
			code, ok := key.Lookup(keyName)
			if !ok {
				return nil, &ResolveError{
					Where:   "layer " + name,
					Message: fmt.Sprintf("unknown key %q", keyName),
				}
			}
			b, err := c.buttonExpr(expr, fmt.Sprintf("layer %s key %s", name, keyName))
			if err != nil {
				return nil, err
			}
			layer[code] = b
		}
		layout.Layers[name] = layer
	}

	if err := checkLayerRefs(layout); err != nil {
		return nil, err
	}
	return layout, nil
}

// buttonExpr compiles one button expression: a string shorthand or a
// single-entry map naming the primitive.
func (c *compiler) buttonExpr(expr any, where string) (*button.Button, error) {
	switch v := expr.(type) {
	case string:
		return c.buttonName(v, where)
	case map[string]any:
		if len(v) != 1 {
			return nil, &ResolveError{Where: where, Message: "button map must have exactly one entry"}
		}
		for prim, arg := range v {
			return c.primitive(prim, arg, where)
		}
	}
	return nil, &ResolveError{Where: where, Message: fmt.Sprintf("unsupported button expression %T", expr)}
}

// buttonName compiles the string shorthands: "trans", "block", an alias
// prefixed with @, or a bare key name meaning emit.
func (c *compiler) buttonName(name string, where string) (*button.Button, error) {
	switch name {
	case "trans", "_":
		return button.Trans(), nil
	case "block":
		return button.Block(), nil
	}
	if len(name) > 1 && name[0] == '@' {
		return c.ref(name[1:], where)
	}
	code, ok := key.Lookup(name)
	if !ok {
		return nil, &ResolveError{Where: where, Message: fmt.Sprintf("unknown key %q", name)}
	}
	return button.Emit(code), nil
}

func (c *compiler) primitive(prim string, arg any, where string) (*button.Button, error) {
	where = where + " " + prim
	switch prim {
	case "emit":
		name, ok := arg.(string)
		if !ok {
			return nil, &ResolveError{Where: where, Message: "emit takes a key name"}
		}
		code, ok := key.Lookup(name)
		if !ok {
			return nil, &ResolveError{Where: where, Message: fmt.Sprintf("unknown key %q", name)}
		}
		return button.Emit(code), nil

	case "layer-toggle", "layer-switch":
		name, ok := arg.(string)
		if !ok || name == "" {
			return nil, &ResolveError{Where: where, Message: "takes a layer name"}
		}
		if prim == "layer-toggle" {
			return button.LayerToggle(name), nil
		}
		return button.LayerSwitch(name), nil

	case "tap-next":
		fields, err := asMap(arg, where)
		if err != nil {
			return nil, err
		}
		tap, hold, err := c.tapHoldBranches(fields, where)
		if err != nil {
			return nil, err
		}
		return button.TapNext(tap, hold), nil

	case "tap-hold":
		fields, err := asMap(arg, where)
		if err != nil {
			return nil, err
		}
		tap, hold, err := c.tapHoldBranches(fields, where)
		if err != nil {
			return nil, err
		}
		delay := c.set.tapHoldDelay
		if ms, ok := asInt(fields["delay"]); ok {
			delay = time.Duration(ms) * time.Millisecond
		}
		return button.TapHold(delay, tap, hold), nil

	case "multi-tap":
		return c.multiTap(arg, where)

	case "around":
		fields, err := asMap(arg, where)
		if err != nil {
			return nil, err
		}
		outer, err := c.buttonExpr(fields["outer"], where+" outer")
		if err != nil {
			return nil, err
		}
		inner, err := c.buttonExpr(fields["inner"], where+" inner")
		if err != nil {
			return nil, err
		}
		return button.Around(outer, inner), nil

	case "tap-macro":
		children, err := c.buttonList(arg, where)
		if err != nil {
			return nil, err
		}
		return button.TapMacroDelay(c.set.macroDelay, children...), nil

	case "compose":
		children, err := c.buttonList(arg, where)
		if err != nil {
			return nil, err
		}
		b := button.ComposeSeq(c.set.composeKey, children...)
		b.Delay = c.set.macroDelay
		return b, nil

	case "ref":
		name, ok := arg.(string)
		if !ok || name == "" {
			return nil, &ResolveError{Where: where, Message: "ref takes an alias name"}
		}
		return c.ref(name, where)

	case "script":
		source, ok := arg.(string)
		if !ok || source == "" {
			return nil, &ResolveError{Where: where, Message: "script takes a source string"}
		}
		if c.scripts == nil {
			return nil, &ResolveError{Where: where, Message: "script buttons not enabled"}
		}
		run, err := c.scripts(where, source)
		if err != nil {
			return nil, &ResolveError{Where: where, Message: err.Error()}
		}
		return button.Script(run), nil

	default:
		return nil, &ResolveError{Where: where, Message: fmt.Sprintf("unknown primitive %q", prim)}
	}
}

// ref resolves an alias, memoized, with cycle detection.
func (c *compiler) ref(name, where string) (*button.Button, error) {
	if b, ok := c.resolved[name]; ok {
		return b, nil
	}
	if c.resolving[name] {
		return nil, &ResolveError{Where: where, Message: fmt.Sprintf("alias cycle through %q", name)}
	}
	expr, ok := c.aliases[name]
	if !ok {
		return nil, &ResolveError{Where: where, Message: fmt.Sprintf("unknown alias %q", name)}
	}

	c.resolving[name] = true
	b, err := c.buttonExpr(expr, "alias "+name)
	delete(c.resolving, name)
	if err != nil {
		return nil, err
	}
	c.resolved[name] = b
	return b, nil
}

func (c *compiler) tapHoldBranches(fields map[string]any, where string) (*button.Button, *button.Button, error) {
	tap, err := c.buttonExpr(fields["tap"], where+" tap")
	if err != nil {
		return nil, nil, err
	}
	hold, err := c.buttonExpr(fields["hold"], where+" hold")
	if err != nil {
		return nil, nil, err
	}
	return tap, hold, nil
}

func (c *compiler) multiTap(arg any, where string) (*button.Button, error) {
	fields, err := asMap(arg, where)
	if err != nil {
		return nil, err
	}
	rawSteps, ok := fields["steps"].([]any)
	if !ok || len(rawSteps) == 0 {
		return nil, &ResolveError{Where: where, Message: "multi-tap needs a steps list"}
	}

	steps := make([]button.TapStep, 0, len(rawSteps))
	for i, rawStep := range rawSteps {
		stepFields, err := asMap(rawStep, fmt.Sprintf("%s step %d", where, i))
		if err != nil {
			return nil, err
		}
		gap := c.set.multiTapGap
		if ms, ok := asInt(stepFields["gap"]); ok {
			gap = time.Duration(ms) * time.Millisecond
		}
		b, err := c.buttonExpr(stepFields["button"], fmt.Sprintf("%s step %d", where, i))
		if err != nil {
			return nil, err
		}
		steps = append(steps, button.TapStep{Gap: gap, Button: b})
	}

	last, err := c.buttonExpr(fields["last"], where+" last")
	if err != nil {
		return nil, err
	}
	return button.MultiTap(steps, last), nil
}

func (c *compiler) buttonList(arg any, where string) ([]*button.Button, error) {
	items, ok := arg.([]any)
	if !ok || len(items) == 0 {
		return nil, &ResolveError{Where: where, Message: "takes a non-empty list"}
	}
	children := make([]*button.Button, 0, len(items))
	for i, item := range items {
		b, err := c.buttonExpr(item, fmt.Sprintf("%s item %d", where, i))
		if err != nil {
			return nil, err
		}
		children = append(children, b)
	}
	return children, nil
}

// checkLayerRefs validates every tree and every layer reference inside the
// trees. Dangling layer references are fatal at load.
func checkLayerRefs(layout *Layout) error {
	var walk func(b *button.Button, where string) error
	walk = func(b *button.Button, where string) error {
		if b == nil {
			return nil
		}
		switch b.Kind {
		case button.KindLayerToggle, button.KindLayerSwitch:
			if _, ok := layout.Layers[b.Layer]; !ok {
				return &ResolveError{
					Where:   where,
					Message: fmt.Sprintf("reference to undefined layer %q", b.Layer),
				}
			}
		}
		for _, child := range []*button.Button{b.Tap, b.Hold, b.Outer, b.Inner, b.Last} {
			if err := walk(child, where); err != nil {
				return err
			}
		}
		for _, s := range b.Steps {
			if err := walk(s.Button, where); err != nil {
				return err
			}
		}
		for _, child := range b.Children {
			if err := walk(child, where); err != nil {
				return err
			}
		}
		return nil
	}

	for name, layer := range layout.Layers {
		for code, b := range layer {
			where := fmt.Sprintf("layer %s key %s", name, code)
			if err := b.Validate(); err != nil {
				return &ResolveError{Where: where, Message: err.Error()}
			}
			if err := walk(b, where); err != nil {
				return err
			}
		}
	}
	return nil
}

func asMap(v any, where string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ResolveError{Where: where, Message: "expected a map"}
	}
	return m, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
