package system

import (
	"testing"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	"github.com/l1jgo/simkernel/internal/core/vmath"
)

func spawn(t *testing.T, s *ecs.Scene, id string, comps ...component.Component) *ecs.Entity {
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

func spawnRegion(t *testing.T, s *ecs.Scene, id string, center vmath.Vec3, priority int, mods ...component.Modifier) *ecs.Entity {
	t.Helper()
	return spawn(t, s, id, component.NewTransform(center), component.NewRegion(priority, vmath.V(4, 4, 4), mods...))
}

func mod(property string, v vmath.Value, mode vmath.BlendMode) component.Modifier {
	return component.Modifier{Property: property, Value: v, BlendMode: mode}
}

type compilerFunc func(e *ecs.Entity, source string) (Behavior, error)

func (f compilerFunc) Compile(e *ecs.Entity, source string) (Behavior, error) { return f(e, source) }

// crossings records region events as "enter:entity:region" strings.
type crossings struct {
	log []string
}

func watchRegions(s *ecs.Scene) *crossings {
	c := &crossings{}
	event.Subscribe(s.Bus(), func(ev event.RegionEnter) {
		c.log = append(c.log, "enter:"+ev.EntityID+":"+ev.RegionID)
	})
	event.Subscribe(s.Bus(), func(ev event.RegionExit) {
		c.log = append(c.log, "exit:"+ev.EntityID+":"+ev.RegionID)
	})
	return c
}

func (c *crossings) take() []string {
	out := c.log
	c.log = nil
	return out
}
