package scripting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/system"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Globals removed from the shared environment after the safe libraries are
// opened. Scripts get no file, module or environment access.
var blockedGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "require", "module",
	"getfenv", "setfenv", "collectgarbage", "newproxy",
}

type Options struct {
	Timeout       time.Duration // per invocation; 0 disables
	CallStackSize int
	RegistrySize  int
}

// Engine wraps a single gopher-lua VM that compiles and runs Logic
// behaviours. Single-goroutine access only (simulation loop).
type Engine struct {
	vm      *lua.LState
	protos  map[[blake2b.Size256]byte]*lua.FunctionProto
	timeout time.Duration
	current *ecs.Entity
	log     *zap.Logger
}

// NewEngine creates a sandboxed VM with only the base, table, string and
// math libraries available.
func NewEngine(opts Options, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: opts.CallStackSize,
		RegistrySize:  opts.RegistrySize,
	})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{Fn: vm.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("open lua %q library: %w", lib.name, err)
		}
	}

	e := &Engine{
		vm:      vm,
		protos:  make(map[[blake2b.Size256]byte]*lua.FunctionProto),
		timeout: opts.Timeout,
		log:     log,
	}

	globals := vm.G.Global
	for _, name := range blockedGlobals {
		globals.RawSetString(name, lua.LNil)
	}
	globals.RawSetString("print", vm.NewFunction(e.luaPrint))
	if m, ok := vm.GetGlobal("math").(*lua.LTable); ok {
		m.RawSetString("random", vm.NewFunction(e.luaMathRandom))
		m.RawSetString("randomseed", lua.LNil)
	}
	e.registerTypes()
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// CachedProtos reports how many distinct sources have been compiled.
func (e *Engine) CachedProtos() int { return len(e.protos) }

// Compile implements system.Compiler. The source is a function body with
// parameters (entity, dt, scene); it runs in a private global table whose
// reads fall through to the shared safe globals.
func (e *Engine) Compile(ent *ecs.Entity, source string) (system.Behavior, error) {
	proto, err := e.proto(ent.ID(), source)
	if err != nil {
		return nil, fmt.Errorf("%w: entity %s: %w", system.ErrScriptCompile, ent.ID(), err)
	}

	chunk := e.vm.NewFunctionFromProto(proto)
	chunk.Env = e.newEnv()
	if err := e.call(ent, chunk, 1); err != nil {
		return nil, fmt.Errorf("%w: entity %s: %w", system.ErrScriptCompile, ent.ID(), err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	fn, ok := ret.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: entity %s: chunk returned %s", system.ErrScriptCompile, ent.ID(), ret.Type())
	}
	return &behavior{engine: e, fn: fn}, nil
}

// proto returns the compiled chunk for source, reusing an earlier compile
// of identical text.
func (e *Engine) proto(name, source string) (*lua.FunctionProto, error) {
	key := blake2b.Sum256([]byte(source))
	if p, ok := e.protos[key]; ok {
		return p, nil
	}
	wrapped := "return function(entity, dt, scene)\n" + source + "\nend"
	stmts, err := parse.Parse(strings.NewReader(wrapped), name)
	if err != nil {
		return nil, err
	}
	p, err := lua.Compile(stmts, name)
	if err != nil {
		return nil, err
	}
	e.protos[key] = p
	e.log.Debug("lua behaviour compiled", zap.String("entity", name), zap.Int("cached", len(e.protos)))
	return p, nil
}

func (e *Engine) newEnv() *lua.LTable {
	env := e.vm.NewTable()
	mt := e.vm.NewTable()
	mt.RawSetString("__index", e.vm.G.Global)
	mt.RawSetString("__metatable", lua.LFalse)
	e.vm.SetMetatable(env, mt)
	env.RawSetString("_G", env)
	return env
}

// call runs fn under the per-call timeout with ent as the current entity.
func (e *Engine) call(ent *ecs.Entity, fn *lua.LFunction, nret int, args ...lua.LValue) error {
	if e.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.vm.SetContext(ctx)
		defer e.vm.RemoveContext()
	}
	prev := e.current
	e.current = ent
	defer func() { e.current = prev }()
	return e.vm.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
}

type behavior struct {
	engine *Engine
	fn     *lua.LFunction
}

func (b *behavior) Invoke(ent *ecs.Entity, dt float64) error {
	e := b.engine
	if err := e.call(ent, b.fn, 0, e.entityValue(ent), lua.LNumber(dt), e.sceneValue(ent.Scene())); err != nil {
		return fmt.Errorf("%w: %w", system.ErrScriptRuntime, err)
	}
	return nil
}

func (e *Engine) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.log.Info("lua print", e.entityField(), zap.String("msg", strings.Join(parts, "\t")))
	return 0
}

func (e *Engine) entityField() zap.Field {
	if e.current == nil {
		return zap.Skip()
	}
	return zap.String("entity", e.current.ID())
}
