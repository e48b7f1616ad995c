// Package scripting embeds a Lua VM for actor behaviors that outgrow the
// built-in variants. A scripted archetype names a global Lua function; the
// cycle scheduler calls it with the actor's state and folds the returned
// table back in.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only (game
// loop). Hot-reload planned via atomic swap.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every actor script under
// scriptsDir. A missing directory is fine; scripted actors then degrade to
// plain counting.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := e.loadDir(filepath.Join(scriptsDir, "actors")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load actor scripts: %w", err)
	}

	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// CycleContext is the data handed to a scripted actor's cycle function.
type CycleContext struct {
	ActorID   int64
	ActorName string
	RoomID    int32
	Cycles    int64
	State     map[string]any
	Config    map[string]any
}

// CycleResult is what the Lua function returned: a replacement state bag
// plus optional production and a line to speak into the room.
type CycleResult struct {
	State map[string]any
	Item  string
	Qty   int64
	Say   string
}

// RunActorCycle calls the named global Lua function with a context table.
// ok is false when the function is missing, errors out, or returns
// something other than a table; the caller treats that as a no-op cycle.
func (e *Engine) RunActorCycle(fnName string, ctx CycleContext) (CycleResult, bool) {
	fn := e.vm.GetGlobal(fnName)
	if fn == lua.LNil {
		e.log.Warn("lua actor function not found", zap.String("fn", fnName))
		return CycleResult{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("actor_id", lua.LNumber(ctx.ActorID))
	t.RawSetString("actor_name", lua.LString(ctx.ActorName))
	t.RawSetString("room_id", lua.LNumber(ctx.RoomID))
	t.RawSetString("cycles", lua.LNumber(ctx.Cycles))
	t.RawSetString("state", goTableToLua(e.vm, ctx.State))
	t.RawSetString("config", goTableToLua(e.vm, ctx.Config))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua actor cycle error",
			zap.String("fn", fnName), zap.Error(err))
		return CycleResult{}, false
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := ret.(*lua.LTable)
	if !ok {
		e.log.Error("lua actor cycle returned non-table", zap.String("fn", fnName))
		return CycleResult{}, false
	}

	res := CycleResult{}
	if st, ok := rt.RawGetString("state").(*lua.LTable); ok {
		res.State = luaTableToGo(st)
	}
	if prod, ok := rt.RawGetString("produce").(*lua.LTable); ok {
		res.Item = lua.LVAsString(prod.RawGetString("item"))
		res.Qty = int64(lua.LVAsNumber(prod.RawGetString("qty")))
	}
	res.Say = lua.LVAsString(rt.RawGetString("say"))
	return res, true
}

// goTableToLua converts a JSON-shaped map into a Lua table. Values outside
// the JSON set map to nil.
func goTableToLua(vm *lua.LState, m map[string]any) *lua.LTable {
	t := vm.NewTable()
	for k, v := range m {
		t.RawSetString(k, goValueToLua(vm, v))
	}
	return t
}

func goValueToLua(vm *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case float64:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case map[string]any:
		return goTableToLua(vm, x)
	case []any:
		t := vm.NewTable()
		for _, item := range x {
			t.Append(goValueToLua(vm, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// luaTableToGo converts a Lua table back into a JSON-shaped Go value:
// contiguous integer keys from 1 become a slice, anything else a map.
func luaTableToGo(t *lua.LTable) map[string]any {
	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[lua.LVAsString(k)] = luaValueToGo(v)
	})
	return m
}

func luaValueToGo(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if n := x.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaValueToGo(x.RawGetInt(i)))
			}
			return arr
		}
		return luaTableToGo(x)
	default:
		return nil
	}
}
