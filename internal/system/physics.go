package system

import (
	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
)

type PhysicsConfig struct {
	FloorEnabled bool
	FloorY       float64
}

// PhysicsSystem integrates velocity and position with semi-implicit Euler
// using the region-resolved gravity, then applies the ground plane.
// Phase 2 (Physics).
type PhysicsSystem struct {
	scene *ecs.Scene
	cfg   PhysicsConfig
}

func NewPhysicsSystem(scene *ecs.Scene, cfg PhysicsConfig) *PhysicsSystem {
	return &PhysicsSystem{scene: scene, cfg: cfg}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *PhysicsSystem) Update(dt float64) {
	ecs.Each2(s.scene, func(_ *ecs.Entity, t *component.Transform, p *component.Physics) {
		if p.IsStatic {
			return
		}
		if p.UseGravity {
			p.Velocity = p.Velocity.Add(p.EffectiveGravity.Scale(dt))
		}
		t.Position = t.Position.Add(p.Velocity.Scale(dt))

		// Single infinite ground plane, not general collision.
		if s.cfg.FloorEnabled && t.Position.Y < s.cfg.FloorY {
			t.Position.Y = s.cfg.FloorY
			p.Velocity.Y = 0
		}
	})
}
