package ecs

import "github.com/l1jgo/simkernel/internal/core/vmath"

// WorldPosition composes e's position through its ParentID chain. Each
// ancestor contributes its position, and its scale applies to everything
// below it. Missing parents end the chain; cycles are cut after Len() hops.
// Rotation is left to the renderer.
func (s *Scene) WorldPosition(e *Entity) vmath.Vec3 {
	t := e.Transform()
	if t == nil {
		return vmath.Vec3{}
	}
	pos := t.Position
	parentID := t.ParentID
	for hops := 0; parentID != "" && hops < s.Len(); hops++ {
		p, ok := s.Entity(parentID)
		if !ok || p == e {
			break
		}
		pt := p.Transform()
		if pt == nil {
			break
		}
		pos = pt.Position.Add(pos.Mul(pt.Scale))
		parentID = pt.ParentID
	}
	return pos
}
