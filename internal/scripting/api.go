package scripting

import (
	"fmt"
	"math/rand"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	entityTypeName = "simkernel.entity"
	sceneTypeName  = "simkernel.scene"
)

func (e *Engine) registerTypes() {
	L := e.vm
	emt := L.NewTypeMetatable(entityTypeName)
	L.SetField(emt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"id":           entityID,
		"state":        entityState,
		"position":     entityPosition,
		"set_position": entitySetPosition,
		"translate":    entityTranslate,
		"velocity":     entityVelocity,
		"set_velocity": entitySetVelocity,
		"effective":    entityEffective,
		"get":          entityGet,
		"set":          entitySet,
	}))
	L.SetField(emt, "__metatable", lua.LFalse)

	smt := L.NewTypeMetatable(sceneTypeName)
	L.SetField(smt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get":     sceneGet,
		"set":     sceneSet,
		"random":  e.sceneRandom,
		"destroy": sceneDestroy,
		"log":     e.sceneLog,
		"gravity": sceneGravity,
		"entity":  e.sceneEntity,
	}))
	L.SetField(smt, "__metatable", lua.LFalse)
}

func (e *Engine) entityValue(ent *ecs.Entity) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = ent
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(entityTypeName))
	return ud
}

func (e *Engine) sceneValue(s *ecs.Scene) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = s
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(sceneTypeName))
	return ud
}

func checkEntity(L *lua.LState) *ecs.Entity {
	ud := L.CheckUserData(1)
	ent, ok := ud.Value.(*ecs.Entity)
	if !ok {
		L.ArgError(1, "entity expected")
		return nil
	}
	if ent.IsDestroyed() {
		L.RaiseError("entity %s is destroyed", ent.ID())
	}
	return ent
}

func checkScene(L *lua.LState) *ecs.Scene {
	ud := L.CheckUserData(1)
	s, ok := ud.Value.(*ecs.Scene)
	if !ok {
		L.ArgError(1, "scene expected")
	}
	return s
}

func checkTransform(L *lua.LState, ent *ecs.Entity) *component.Transform {
	t := ent.Transform()
	if t == nil {
		L.RaiseError("entity %s has no Transform", ent.ID())
	}
	return t
}

func checkVec(L *lua.LState, first int) vmath.Vec3 {
	return vmath.V(
		float64(L.CheckNumber(first)),
		float64(L.CheckNumber(first+1)),
		float64(L.CheckNumber(first+2)),
	)
}

func vecTable(L *lua.LState, v vmath.Vec3) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

func entityID(L *lua.LState) int {
	L.Push(lua.LString(checkEntity(L).ID()))
	return 1
}

func entityState(L *lua.LState) int {
	L.Push(lua.LString(checkEntity(L).State().String()))
	return 1
}

func entityPosition(L *lua.LState) int {
	ent := checkEntity(L)
	L.Push(vecTable(L, checkTransform(L, ent).Position))
	return 1
}

func entitySetPosition(L *lua.LState) int {
	ent := checkEntity(L)
	checkTransform(L, ent).Position = checkVec(L, 2)
	return 0
}

func entityTranslate(L *lua.LState) int {
	ent := checkEntity(L)
	t := checkTransform(L, ent)
	t.Position = t.Position.Add(checkVec(L, 2))
	return 0
}

func entityVelocity(L *lua.LState) int {
	var v vmath.Vec3
	if p := checkEntity(L).Physics(); p != nil {
		v = p.Velocity
	}
	L.Push(vecTable(L, v))
	return 1
}

func entitySetVelocity(L *lua.LState) int {
	ent := checkEntity(L)
	p := ent.Physics()
	if p == nil {
		L.RaiseError("entity %s has no Physics", ent.ID())
		return 0
	}
	p.Velocity = checkVec(L, 2)
	return 0
}

// entityEffective returns a number, an {x,y,z} table or a "#rrggbb" string,
// or nil when no region sets the key.
func entityEffective(L *lua.LState) int {
	ent := checkEntity(L)
	v, ok := ent.Effective(L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	switch v.Kind {
	case vmath.KindScalar:
		L.Push(lua.LNumber(v.Scalar))
	case vmath.KindVector:
		L.Push(vecTable(L, v.Vec))
	case vmath.KindColor:
		L.Push(lua.LString(v.Color.Hex()))
	default:
		L.Push(lua.LNil)
	}
	return 1
}

func entityGet(L *lua.LState) int {
	ent := checkEntity(L)
	v, _ := ent.Var(L.CheckString(2))
	L.Push(fromGo(v))
	return 1
}

func entitySet(L *lua.LState) int {
	ent := checkEntity(L)
	setVar(L, ent.Vars)
	return 0
}

func sceneGet(L *lua.LState) int {
	s := checkScene(L)
	L.Push(fromGo(s.Vars[L.CheckString(2)]))
	return 1
}

func sceneSet(L *lua.LState) int {
	setVar(L, checkScene(L).Vars)
	return 0
}

// sceneRandom mirrors math.random over the scene's seeded generator.
func (e *Engine) sceneRandom(L *lua.LState) int {
	s := checkScene(L)
	return pushRandom(L, s.Rand(), 2)
}

func (e *Engine) luaMathRandom(L *lua.LState) int {
	if e.current == nil {
		L.RaiseError("math.random called outside a behaviour")
		return 0
	}
	return pushRandom(L, e.current.Scene().Rand(), 1)
}

func pushRandom(L *lua.LState, rng *rand.Rand, first int) int {
	switch L.GetTop() - first + 1 {
	case 0:
		L.Push(lua.LNumber(rng.Float64()))
	case 1:
		hi := L.CheckInt(first)
		if hi < 1 {
			L.ArgError(first, "interval is empty")
		}
		L.Push(lua.LNumber(rng.Intn(hi) + 1))
	default:
		lo, hi := L.CheckInt(first), L.CheckInt(first+1)
		if lo > hi {
			L.ArgError(first+1, "interval is empty")
		}
		L.Push(lua.LNumber(lo + rng.Intn(hi-lo+1)))
	}
	return 1
}

// sceneDestroy queues the entity for removal at the end of the step.
func sceneDestroy(L *lua.LState) int {
	checkScene(L).MarkForDestruction(L.CheckString(2))
	return 0
}

func (e *Engine) sceneLog(L *lua.LState) int {
	checkScene(L)
	e.log.Info("lua log", e.entityField(), zap.String("msg", L.CheckString(2)))
	return 0
}

func sceneGravity(L *lua.LState) int {
	L.Push(vecTable(L, checkScene(L).Gravity))
	return 1
}

func (e *Engine) sceneEntity(L *lua.LState) int {
	ent, ok := checkScene(L).Entity(L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.entityValue(ent))
	return 1
}

func setVar(L *lua.LState, vars map[string]any) {
	key := L.CheckString(2)
	v, err := toGo(L.Get(3))
	if err != nil {
		L.ArgError(3, err.Error())
		return
	}
	if v == nil {
		delete(vars, key)
		return
	}
	vars[key] = v
}

func toGo(v lua.LValue) (any, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LBool:
		return bool(v), nil
	}
	return nil, fmt.Errorf("unsupported variable type %s", v.Type())
}

func fromGo(v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case float64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case bool:
		return lua.LBool(v)
	}
	return lua.LString(fmt.Sprint(v))
}
