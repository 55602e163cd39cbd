package script

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
	"github.com/dshills/keywarp/internal/logging"
)

// Runner is one compiled script button. The loop invokes Press and
// Release synchronously, so the current capability set can live on the
// runner between the call and the API functions it triggers.
type Runner struct {
	id    string
	name  string
	state *lua.LState

	press   lua.LValue
	release lua.LValue

	cur button.Caps
	log *logging.Logger
}

var _ button.ScriptRunner = (*Runner)(nil)

// ID returns the runner's instance id.
func (r *Runner) ID() string { return r.id }

// Press runs the script's press function.
func (r *Runner) Press(k button.Caps) error {
	return r.call(k, r.press, "press")
}

// Release runs the script's release function, if defined.
func (r *Runner) Release(k button.Caps) error {
	if r.release == nil || r.release.Type() != lua.LTFunction {
		return nil
	}
	return r.call(k, r.release, "release")
}

func (r *Runner) call(k button.Caps, fn lua.LValue, op string) error {
	r.cur = k
	defer func() { r.cur = nil }()

	if err := r.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return &ScriptError{Name: r.name, Op: op, Err: err}
	}
	return nil
}

// installAPI registers the key and layer tables the scripts program
// against.
func (r *Runner) installAPI() {
	L := r.state

	keyTable := L.NewTable()
	L.SetFuncs(keyTable, map[string]lua.LGFunction{
		"emit":   r.apiEmit,
		"tap":    r.apiTap,
		"pause":  r.apiPause,
		"inject": r.apiInject,
	})
	L.SetGlobal("key", keyTable)

	layerTable := L.NewTable()
	L.SetFuncs(layerTable, map[string]lua.LGFunction{
		"push":    r.apiLayerPush,
		"pop":     r.apiLayerPop,
		"setbase": r.apiLayerSetBase,
		"exists":  r.apiLayerExists,
	})
	L.SetGlobal("layer", layerTable)
}

func (r *Runner) code(L *lua.LState, pos int) (key.Code, bool) {
	name := L.CheckString(pos)
	code, ok := key.Lookup(name)
	if !ok {
		L.RaiseError("unknown key %q", name)
		return 0, false
	}
	return code, true
}

func (r *Runner) keySwitch(L *lua.LState, pos int) (key.Switch, bool) {
	switch L.OptString(pos, "press") {
	case "press":
		return key.Press, true
	case "release":
		return key.Release, true
	default:
		L.RaiseError("switch must be %q or %q", "press", "release")
		return 0, false
	}
}

func (r *Runner) apiEmit(L *lua.LState) int {
	code, ok := r.code(L, 1)
	if !ok {
		return 0
	}
	s, ok := r.keySwitch(L, 2)
	if !ok {
		return 0
	}
	if s == key.Press {
		r.cur.Emit(key.NewPress(code))
	} else {
		r.cur.Emit(key.NewRelease(code))
	}
	return 0
}

func (r *Runner) apiTap(L *lua.LState) int {
	code, ok := r.code(L, 1)
	if !ok {
		return 0
	}
	r.cur.Emit(key.NewPress(code))
	r.cur.Emit(key.NewRelease(code))
	return 0
}

func (r *Runner) apiPause(L *lua.LState) int {
	ms := L.CheckInt64(1)
	if ms > 0 {
		r.cur.Pause(time.Duration(ms) * time.Millisecond)
	}
	return 0
}

func (r *Runner) apiInject(L *lua.LState) int {
	code, ok := r.code(L, 1)
	if !ok {
		return 0
	}
	s, ok := r.keySwitch(L, 2)
	if !ok {
		return 0
	}
	if s == key.Press {
		r.cur.Inject(key.NewPress(code))
	} else {
		r.cur.Inject(key.NewRelease(code))
	}
	return 0
}

func (r *Runner) apiLayerPush(L *lua.LState) int {
	r.cur.LayerOp(button.PushLayer(L.CheckString(1)))
	return 0
}

func (r *Runner) apiLayerPop(L *lua.LState) int {
	r.cur.LayerOp(button.PopLayer(L.CheckString(1)))
	return 0
}

func (r *Runner) apiLayerSetBase(L *lua.LState) int {
	r.cur.LayerOp(button.SetBaseLayer(L.CheckString(1)))
	return 0
}

func (r *Runner) apiLayerExists(L *lua.LState) int {
	name := L.CheckString(1)
	var found bool
	var size int
	r.cur.LayerOp(button.AboutLayer(name, func(exists bool, n int) {
		found = exists
		size = n
	}))
	L.Push(lua.LBool(found))
	L.Push(lua.LNumber(size))
	return 2
}

// String describes the runner for logs.
func (r *Runner) String() string {
	return fmt.Sprintf("script(%s, %s)", r.name, r.id)
}
