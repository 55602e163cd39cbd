// Package script runs user-defined button actions written in Lua. Each
// script button owns a sandboxed Lua state; the layout loader compiles
// sources through the engine at load time, and the loop invokes the
// compiled press/release functions through button.ScriptRunner.
package script

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/logging"
)

// Errors for script operations.
var (
	// ErrEngineClosed is returned when compiling on a closed engine.
	ErrEngineClosed = errors.New("script engine is closed")

	// ErrNoPress is returned when a script defines no press function.
	ErrNoPress = errors.New("script defines no press function")
)

// ScriptError reports a failure inside a script button.
type ScriptError struct {
	Name string
	Op   string
	Err  error
}

// Error implements error.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %s: %v", e.Name, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error { return e.Err }

// Engine compiles script button sources and owns their Lua states.
type Engine struct {
	mu      sync.Mutex
	runners map[string]*Runner
	closed  bool
	log     *logging.Logger
}

// NewEngine creates a script engine.
func NewEngine(log *logging.Logger) *Engine {
	return &Engine{
		runners: make(map[string]*Runner),
		log:     log.WithComponent("script"),
	}
}

// Compile builds a runner from a script source. The source must define a
// global press function; release is optional. The state is sandboxed: no
// os, io, debug, or code loading.
func (e *Engine) Compile(name, source string) (*Runner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	sandbox(L)

	r := &Runner{
		id:    uuid.NewString(),
		name:  name,
		state: L,
		log:   e.log.WithField("script", name),
	}
	r.installAPI()

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, &ScriptError{Name: name, Op: "compile", Err: err}
	}

	r.press = L.GetGlobal("press")
	if r.press.Type() != lua.LTFunction {
		L.Close()
		return nil, &ScriptError{Name: name, Op: "compile", Err: ErrNoPress}
	}
	r.release = L.GetGlobal("release")

	e.runners[r.id] = r
	return r, nil
}

// Factory returns a config.ScriptFactory-shaped adapter.
func (e *Engine) Factory() func(name, source string) (button.ScriptRunner, error) {
	return func(name, source string) (button.ScriptRunner, error) {
		return e.Compile(name, source)
	}
}

// Close releases every compiled state.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, r := range e.runners {
		r.state.Close()
	}
	e.runners = nil
}

// sandbox strips the state of capabilities script buttons must not have.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"require",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	for _, mod := range []string{"os", "io", "debug", "package"} {
		L.SetGlobal(mod, lua.LNil)
	}
}
