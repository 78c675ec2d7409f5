package system

import (
	"errors"
	"fmt"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"go.uber.org/zap"
)

var (
	ErrScriptCompile = errors.New("script compile error")
	ErrScriptRuntime = errors.New("script runtime error")
)

// Behavior is a compiled per-entity behaviour. Invoke runs to completion
// within one fixed step.
type Behavior interface {
	Invoke(e *ecs.Entity, dt float64) error
}

// BehaviorFunc adapts a Go function to Behavior.
type BehaviorFunc func(e *ecs.Entity, dt float64) error

func (f BehaviorFunc) Invoke(e *ecs.Entity, dt float64) error { return f(e, dt) }

// Compiler turns Logic source text into a Behavior for one entity.
type Compiler interface {
	Compile(e *ecs.Entity, source string) (Behavior, error)
}

var noop = BehaviorFunc(func(*ecs.Entity, float64) error { return nil })

type compiled struct {
	source   string
	behavior Behavior
	ok       bool
}

// LogicSystem compiles each entity's Logic source once and invokes the
// result every step, in entity creation order. A compile failure pins a
// no-op behaviour until the source text changes; a runtime failure aborts
// only that entity's invocation. Phase 1 (Logic).
type LogicSystem struct {
	scene    *ecs.Scene
	compiler Compiler
	scripts  *ecs.Store[compiled]
	step     uint64
	log      *zap.Logger
}

func NewLogicSystem(scene *ecs.Scene, compiler Compiler, log *zap.Logger) *LogicSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &LogicSystem{
		scene:    scene,
		compiler: compiler,
		scripts:  ecs.NewStore[compiled](),
		log:      log,
	}
	scene.Registry().Register(s.scripts)
	return s
}

func (s *LogicSystem) Phase() coresys.Phase { return coresys.PhaseLogic }

func (s *LogicSystem) Update(dt float64) {
	s.step++
	ecs.Each1(s.scene, func(e *ecs.Entity, l *component.Logic) {
		if l.Source == "" {
			s.scripts.Remove(e.Handle())
			return
		}
		c, ok := s.scripts.Get(e.Handle())
		if !ok || c.source != l.Source {
			c = s.compile(e, l.Source)
			s.scripts.Set(e.Handle(), c)
		}
		if !c.ok {
			return
		}
		if err := s.invoke(c.behavior, e, dt); err != nil {
			s.log.Error("logic runtime error",
				zap.String("entity", e.ID()),
				zap.Uint64("step", s.step),
				zap.Error(err),
			)
			event.Publish(s.scene.Bus(), event.ScriptFault{EntityID: e.ID(), Stage: "runtime", Err: err, Step: s.step})
		}
	})
}

func (s *LogicSystem) compile(e *ecs.Entity, source string) *compiled {
	b, err := s.compiler.Compile(e, source)
	if err == nil && b == nil {
		err = errors.New("compiler returned no behavior")
	}
	if err != nil {
		if !errors.Is(err, ErrScriptCompile) {
			err = fmt.Errorf("%w: %w", ErrScriptCompile, err)
		}
		s.log.Error("logic compile error, script disabled",
			zap.String("entity", e.ID()),
			zap.Error(err),
		)
		event.Publish(s.scene.Bus(), event.ScriptFault{EntityID: e.ID(), Stage: "compile", Err: err, Step: s.step})
		return &compiled{source: source, behavior: noop}
	}
	return &compiled{source: source, behavior: b, ok: true}
}

// invoke isolates one entity's behaviour: errors and panics come back as
// ErrScriptRuntime and never escape the step.
func (s *LogicSystem) invoke(b Behavior, e *ecs.Entity, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrScriptRuntime, r)
		}
	}()
	if err := b.Invoke(e, dt); err != nil {
		if errors.Is(err, ErrScriptRuntime) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrScriptRuntime, err)
	}
	return nil
}

// Compiled reports whether the entity currently holds a successfully
// compiled behaviour.
func (s *LogicSystem) Compiled(id string) bool {
	e, ok := s.scene.Entity(id)
	if !ok {
		return false
	}
	c, ok := s.scripts.Get(e.Handle())
	return ok && c.ok
}
