package ecs

import (
	"fmt"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/vmath"
)

// LifecycleState is the position of an entity in its lifecycle.
//
//	Created -> Initialized -> Active <-> Disabled
//	any -> Destroyed (terminal)
type LifecycleState uint8

const (
	Created LifecycleState = iota
	Initialized
	Active
	Disabled
	Destroyed
)

func (s LifecycleState) String() string {
	switch s {
	case Created:
		return "Created"
	case Initialized:
		return "Initialized"
	case Active:
		return "Active"
	case Disabled:
		return "Disabled"
	case Destroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("LifecycleState(%d)", uint8(s))
}

// Entity is an identity plus at most one component per kind. Entities are
// created and owned by a Scene; never construct one directly.
type Entity struct {
	id     string
	handle EntityID
	state  LifecycleState
	scene  *Scene

	comps [component.NumKinds]component.Component
	order []component.Kind

	// Name is an editor label, not an identity.
	Name string
	// Vars is the per-entity variable store shared with scripts.
	Vars map[string]any

	effective map[string]vmath.Value
}

func (e *Entity) ID() string { return e.id }
func (e *Entity) Handle() EntityID { return e.handle }
func (e *Entity) State() LifecycleState { return e.state }
func (e *Entity) Scene() *Scene { return e.scene }
func (e *Entity) IsActive() bool { return e.state == Active }
func (e *Entity) IsDestroyed() bool { return e.state == Destroyed }

// Add attaches c. On an Initialized or Active entity the component's hooks
// run immediately so it is never silently inert.
func (e *Entity) Add(c component.Component) error {
	if e.state == Destroyed {
		return fmt.Errorf("add %s to %q: %w", c.Kind(), e.id, ErrInvalidLifecycleTransition)
	}
	k := c.Kind()
	if e.comps[k] != nil {
		return fmt.Errorf("add %s to %q: %w", k, e.id, ErrDuplicateComponent)
	}
	e.comps[k] = c
	e.order = append(e.order, k)

	if e.state == Initialized || e.state == Active || e.state == Disabled {
		if h, ok := c.(component.Initializer); ok {
			h.OnInitialize()
		}
	}
	if e.state == Active {
		if h, ok := c.(component.Activator); ok {
			h.OnActivate()
		}
	}
	return nil
}

// Remove tears down and detaches the component of kind k, if present.
func (e *Entity) Remove(k component.Kind) error {
	if e.state == Destroyed {
		return fmt.Errorf("remove %s from %q: %w", k, e.id, ErrInvalidLifecycleTransition)
	}
	c := e.comps[k]
	if c == nil {
		return nil
	}
	if h, ok := c.(component.Destroyer); ok {
		h.OnDestroy()
	}
	e.comps[k] = nil
	for i, kk := range e.order {
		if kk == k {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

func (e *Entity) Get(k component.Kind) (component.Component, bool) {
	c := e.comps[k]
	return c, c != nil
}

func (e *Entity) Has(k component.Kind) bool { return e.comps[k] != nil }

// Components returns the components in insertion order.
func (e *Entity) Components() []component.Component {
	out := make([]component.Component, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, e.comps[k])
	}
	return out
}

// Get returns the component of type T attached to e.
//
//	phys, ok := ecs.Get[*component.Physics](e)
func Get[T component.Component](e *Entity) (T, bool) {
	var zero T
	c := e.comps[zero.Kind()]
	if c == nil {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

func (e *Entity) Transform() *component.Transform {
	t, _ := Get[*component.Transform](e)
	return t
}

func (e *Entity) Physics() *component.Physics {
	p, _ := Get[*component.Physics](e)
	return p
}

// Initialize runs the one-time setup hooks. No-op unless Created.
func (e *Entity) Initialize() error {
	switch e.state {
	case Destroyed:
		return fmt.Errorf("initialize %q: %w", e.id, ErrInvalidLifecycleTransition)
	case Created:
	default:
		return nil
	}
	e.state = Initialized
	e.each(func(c component.Component) {
		if h, ok := c.(component.Initializer); ok {
			h.OnInitialize()
		}
	})
	return nil
}

// Activate makes the entity visible to systems, initializing it first when
// it is still Created.
func (e *Entity) Activate() error {
	switch e.state {
	case Destroyed:
		return fmt.Errorf("activate %q: %w", e.id, ErrInvalidLifecycleTransition)
	case Active:
		return nil
	case Created:
		if err := e.Initialize(); err != nil {
			return err
		}
	}
	e.state = Active
	e.each(func(c component.Component) {
		if h, ok := c.(component.Activator); ok {
			h.OnActivate()
		}
	})
	return nil
}

// Disable excludes an Active entity from systems without destroying it.
func (e *Entity) Disable() error {
	switch e.state {
	case Destroyed:
		return fmt.Errorf("disable %q: %w", e.id, ErrInvalidLifecycleTransition)
	case Active:
	default:
		return nil
	}
	e.state = Disabled
	e.each(func(c component.Component) {
		if h, ok := c.(component.Disabler); ok {
			h.OnDisable()
		}
	})
	return nil
}

// destroy tears down every component exactly once. Only the Scene calls it.
func (e *Entity) destroy() {
	if e.state == Destroyed {
		return
	}
	e.state = Destroyed
	e.each(func(c component.Component) {
		if h, ok := c.(component.Destroyer); ok {
			h.OnDestroy()
		}
	})
	e.comps = [component.NumKinds]component.Component{}
	e.order = nil
	e.effective = nil
	e.Vars = nil
}

func (e *Entity) each(fn func(component.Component)) {
	for _, k := range e.order {
		fn(e.comps[k])
	}
}

// Effective returns the region-resolved value of key from the last resolve.
// Keys match regardless of case.
func (e *Entity) Effective(key string) (vmath.Value, bool) {
	v, ok := e.effective[FoldKey(key)]
	return v, ok
}

// EffectiveProperties returns the current snapshot. Callers must not modify it.
func (e *Entity) EffectiveProperties() map[string]vmath.Value { return e.effective }

// SetEffectiveProperties replaces the snapshot. An empty or nil map means
// the entity is outside every region.
func (e *Entity) SetEffectiveProperties(m map[string]vmath.Value) {
	if len(m) == 0 {
		e.effective = nil
		return
	}
	e.effective = m
}
