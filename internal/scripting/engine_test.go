package scripting

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	"github.com/l1jgo/simkernel/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	eng, err := NewEngine(opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func newEntity(t *testing.T, s *ecs.Scene, id string, comps ...component.Component) *ecs.Entity {
	t.Helper()
	e, err := s.CreateEntity(id)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range comps {
		if err := e.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Activate(); err != nil {
		t.Fatal(err)
	}
	return e
}

func compile(t *testing.T, eng *Engine, e *ecs.Entity, src string) system.Behavior {
	t.Helper()
	b, err := eng.Compile(e, src)
	if err != nil {
		t.Fatalf("compile %s: %v", e.ID(), err)
	}
	return b
}

func TestBehaviorMovesEntity(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "mover", component.NewTransform(vmath.V(1, 2, 3)), component.NewPhysics())

	b := compile(t, eng, e, `
local p = entity:position()
entity:set_position(p.x + dt, p.y, p.z)
entity:translate(0, 0, 1)
entity:set_velocity(4, 5, 6)
entity:set("state", entity:state())
`)
	if err := b.Invoke(e, 0.5); err != nil {
		t.Fatal(err)
	}
	if got := e.Transform().Position; got != vmath.V(1.5, 2, 4) {
		t.Errorf("position %v", got)
	}
	if got := e.Physics().Velocity; got != vmath.V(4, 5, 6) {
		t.Errorf("velocity %v", got)
	}
	if e.Vars["state"] != "Active" {
		t.Errorf("state var %v", e.Vars["state"])
	}
}

func TestSandboxHidesUnsafeGlobals(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "probe")

	b := compile(t, eng, e, `
entity:set("os", os == nil)
entity:set("io", io == nil)
entity:set("require", require == nil)
entity:set("load", load == nil and loadstring == nil and dofile == nil)
entity:set("math", math.floor(2.7) == 2)
entity:set("string", string.upper("a") == "A")
`)
	if err := b.Invoke(e, 0); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"os", "io", "require", "load", "math", "string"} {
		if e.Vars[k] != true {
			t.Errorf("%s check = %v", k, e.Vars[k])
		}
	}

	escape := compile(t, eng, e, `os.exit(1)`)
	if err := escape.Invoke(e, 0); !errors.Is(err, system.ErrScriptRuntime) {
		t.Errorf("expected runtime error, got %v", err)
	}
}

func TestEnvironmentsAreIsolated(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	a := newEntity(t, s, "a")
	b := newEntity(t, s, "b")

	src := `
counter = (counter or 0) + 1
entity:set("counter", counter)
`
	ba := compile(t, eng, a, src)
	bb := compile(t, eng, b, src)
	for i := 0; i < 3; i++ {
		if err := ba.Invoke(a, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := bb.Invoke(b, 0); err != nil {
		t.Fatal(err)
	}
	if a.Vars["counter"] != 3.0 || b.Vars["counter"] != 1.0 {
		t.Errorf("counters a=%v b=%v", a.Vars["counter"], b.Vars["counter"])
	}

	leak := compile(t, eng, a, `_G.shared = 1`)
	if err := leak.Invoke(a, 0); err != nil {
		t.Fatal(err)
	}
	check := compile(t, eng, b, `entity:set("shared", shared == nil)`)
	if err := check.Invoke(b, 0); err != nil {
		t.Fatal(err)
	}
	if b.Vars["shared"] != true {
		t.Error("global leaked between entities")
	}
}

func TestProtoCacheReusesCompiledSource(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	src := `entity:translate(0, 1, 0)`
	for _, id := range []string{"a", "b", "c"} {
		e := newEntity(t, s, id, component.NewTransform(vmath.Vec3{}))
		compile(t, eng, e, src)
	}
	e := newEntity(t, s, "d", component.NewTransform(vmath.Vec3{}))
	compile(t, eng, e, `entity:translate(1, 0, 0)`)
	if got := eng.CachedProtos(); got != 2 {
		t.Errorf("cached protos = %d, want 2", got)
	}
}

func TestCompileErrorIsWrapped(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "broken")
	_, err := eng.Compile(e, `if then`)
	if !errors.Is(err, system.ErrScriptCompile) {
		t.Fatalf("expected compile error, got %v", err)
	}
	if eng.CachedProtos() != 0 {
		t.Error("failed source was cached")
	}
}

func TestTimeoutStopsRunawayScript(t *testing.T) {
	eng := newEngine(t, Options{Timeout: 20 * time.Millisecond})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "spin", component.NewTransform(vmath.Vec3{}))

	spin := compile(t, eng, e, `while true do end`)
	start := time.Now()
	err := spin.Invoke(e, 0)
	if !errors.Is(err, system.ErrScriptRuntime) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took %v", time.Since(start))
	}

	// The VM stays usable after a timeout.
	ok := compile(t, eng, e, `entity:translate(1, 0, 0)`)
	if err := ok.Invoke(e, 0); err != nil {
		t.Fatal(err)
	}
	if e.Transform().Position.X != 1 {
		t.Errorf("position %v", e.Transform().Position)
	}
}

func TestSceneAPI(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{Seed: 7, Gravity: &vmath.Vec3{Y: -3}})
	ctl := newEntity(t, s, "ctl")
	target := newEntity(t, s, "target", component.NewTransform(vmath.V(9, 0, 0)))

	b := compile(t, eng, ctl, `
scene:set("level", 2)
entity:set("level", scene:get("level"))
entity:set("gy", scene:gravity().y)
local other = scene:entity("target")
entity:set("tx", other:position().x)
entity:set("missing", scene:entity("nobody") == nil)
local r = scene:random(1, 6)
entity:set("roll_ok", r >= 1 and r <= 6 and r == math.floor(r))
scene:destroy("target")
scene:log("done")
`)
	if err := b.Invoke(ctl, 0); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"level": 2.0, "gy": -3.0, "tx": 9.0, "missing": true, "roll_ok": true}
	for k, v := range want {
		if ctl.Vars[k] != v {
			t.Errorf("%s = %v, want %v", k, ctl.Vars[k], v)
		}
	}
	if s.Vars["level"] != 2.0 {
		t.Errorf("scene var %v", s.Vars["level"])
	}
	// Destruction is deferred until the queue is flushed.
	if target.IsDestroyed() {
		t.Error("target destroyed before flush")
	}
	if n := s.FlushDestroyQueue(); n != 1 {
		t.Errorf("flushed %d", n)
	}
	if _, ok := s.Entity("target"); ok {
		t.Error("target still present")
	}
}

func TestRandomIsSeeded(t *testing.T) {
	roll := func() any {
		eng := newEngine(t, Options{})
		s := ecs.NewScene(ecs.Options{Seed: 99})
		e := newEntity(t, s, "dice")
		b := compile(t, eng, e, `entity:set("r", scene:random() + math.random(100))`)
		if err := b.Invoke(e, 0); err != nil {
			t.Fatal(err)
		}
		return e.Vars["r"]
	}
	if a, b := roll(), roll(); a != b {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestEffectiveAndVariables(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "e")
	e.Vars["speed"] = 3
	e.SetEffectiveProperties(map[string]vmath.Value{
		"gravity": vmath.Vector(vmath.V(0, 2, 0)),
		"mass":    vmath.Scalar(4),
		"color":   vmath.RGB(vmath.MustHex("#00ff00")),
	})

	b := compile(t, eng, e, `
entity:set("g", entity:effective("gravity").y)
entity:set("m", entity:effective("mass"))
entity:set("c", entity:effective("color"))
entity:set("none", entity:effective("friction") == nil)
entity:set("speed2", entity:get("speed") * 2)
entity:set("speed", nil)
`)
	if err := b.Invoke(e, 0); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"g": 2.0, "m": 4.0, "c": "#00ff00", "none": true, "speed2": 6.0}
	for k, v := range want {
		if e.Vars[k] != v {
			t.Errorf("%s = %v, want %v", k, e.Vars[k], v)
		}
	}
	if _, ok := e.Vars["speed"]; ok {
		t.Error("nil assignment did not delete the variable")
	}

	mixed := compile(t, eng, e, `entity:set("m2", entity:effective("MASS") + entity:get("SPEED2"))`)
	if err := mixed.Invoke(e, 0); err != nil {
		t.Fatal(err)
	}
	if e.Vars["m2"] != 10.0 {
		t.Errorf("case-insensitive lookups gave %v", e.Vars["m2"])
	}

	bad := compile(t, eng, e, `entity:set("t", {})`)
	if err := bad.Invoke(e, 0); !errors.Is(err, system.ErrScriptRuntime) {
		t.Errorf("table variable: %v", err)
	}
}

func TestPrintAndLogGoThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	eng, err := NewEngine(Options{}, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "talker")

	b := compile(t, eng, e, `print("hello", 1) scene:log("bye")`)
	if err := b.Invoke(e, 0); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterField(zap.String("entity", "talker")).All()
	if len(entries) != 2 {
		t.Fatalf("log entries %d", len(entries))
	}
	if entries[0].ContextMap()["msg"] != "hello\t1" || entries[1].ContextMap()["msg"] != "bye" {
		t.Errorf("messages %v %v", entries[0].ContextMap(), entries[1].ContextMap())
	}
}

func TestLogicSystemRunsLuaBehaviours(t *testing.T) {
	eng := newEngine(t, Options{})
	s := ecs.NewScene(ecs.Options{})
	e := newEntity(t, s, "spinner", component.NewTransform(vmath.Vec3{}), &component.Logic{Source: `entity:translate(dt, 0, 0)`})
	broken := newEntity(t, s, "broken", &component.Logic{Source: `error("boom")`})

	logic := system.NewLogicSystem(s, eng, nil)
	for i := 0; i < 4; i++ {
		logic.Update(0.25)
	}
	if got := e.Transform().Position.X; got != 1 {
		t.Errorf("x = %v", got)
	}
	if !logic.Compiled(e.ID()) || !logic.Compiled(broken.ID()) {
		t.Error("behaviours not compiled")
	}
	if eng.CachedProtos() != 2 {
		t.Errorf("cached protos = %d", eng.CachedProtos())
	}
}
