package ecs

import "github.com/l1jgo/simkernel/internal/component"

// Each1 visits every Active entity carrying an A, in creation order.
func Each1[A component.Component](s *Scene, fn func(*Entity, A)) {
	s.EachActive(func(e *Entity) {
		if a, ok := Get[A](e); ok {
			fn(e, a)
		}
	})
}

// Each2 visits every Active entity carrying both an A and a B, in creation
// order. Ordering is part of the contract: systems with observable side
// effects rely on it being reproducible.
func Each2[A, B component.Component](s *Scene, fn func(*Entity, A, B)) {
	s.EachActive(func(e *Entity) {
		a, ok := Get[A](e)
		if !ok {
			return
		}
		b, ok := Get[B](e)
		if !ok {
			return
		}
		fn(e, a, b)
	})
}
