package system

import (
	"slices"
	"sort"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	"go.uber.org/zap"
)

// Well-known property keys with component-backed base values.
const (
	PropGravity   = "gravity"
	PropMass      = "mass"
	PropColor     = "color"
	PropHue       = "hue"
	PropAlpha     = "alpha"
	PropIntensity = "intensity"
)

// membership is the cached set of regions containing a subject, in region
// iteration order, compared by handle identity.
type membership struct {
	regions []ecs.EntityID
}

type volume struct {
	e      *ecs.Entity
	region *component.Region
	center vmath.Vec3
}

// RegionSystem resolves region membership for every active non-region
// entity with a Transform, emits RegionEnter/RegionExit on boundary
// crossings, and refolds effective properties only when membership changes.
// Phase 0 (Region).
type RegionSystem struct {
	scene   *ecs.Scene
	members *ecs.Store[membership]
	grid    *regionGrid
	scratch []int
	step    uint64
	log     *zap.Logger
}

func NewRegionSystem(scene *ecs.Scene, log *zap.Logger) *RegionSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RegionSystem{
		scene:   scene,
		members: ecs.NewStore[membership](),
		grid:    newRegionGrid(),
		log:     log,
	}
	scene.Registry().Register(s.members)
	return s
}

func (s *RegionSystem) Phase() coresys.Phase { return coresys.PhaseRegion }

func (s *RegionSystem) Update(_ float64) {
	s.step++

	var volumes []volume
	ecs.Each2(s.scene, func(e *ecs.Entity, _ *component.Transform, r *component.Region) {
		volumes = append(volumes, volume{e: e, region: r, center: s.scene.WorldPosition(e)})
	})
	s.grid.reset()
	for i, v := range volumes {
		s.grid.add(i, v.center, v.region.Size)
	}

	ecs.Each1(s.scene, func(e *ecs.Entity, _ *component.Transform) {
		if e.Has(component.KindRegion) {
			return
		}
		s.updateSubject(e, volumes)
	})
}

func (s *RegionSystem) updateSubject(e *ecs.Entity, volumes []volume) {
	pos := s.scene.WorldPosition(e)
	var inside []volume
	var current []ecs.EntityID
	s.scratch = s.grid.candidates(pos, s.scratch)
	for _, i := range s.scratch {
		v := volumes[i]
		// An event handler earlier in this pass may have destroyed it.
		if v.e.IsDestroyed() {
			continue
		}
		if pos.InBox(v.center, v.region.Size) {
			inside = append(inside, v)
			current = append(current, v.e.Handle())
		}
	}

	var previous []ecs.EntityID
	changed := false
	if m, ok := s.members.Get(e.Handle()); ok {
		for _, h := range m.regions {
			// Regions destroyed since the last step leave silently.
			if _, alive := s.scene.Lookup(h); alive {
				previous = append(previous, h)
			} else {
				changed = true
			}
		}
	}
	m := &membership{regions: current}
	s.members.Set(e.Handle(), m)

	// Handlers run synchronously and may destroy the subject or a region.
	// Neither is named in an event once it is gone.
	bus := s.scene.Bus()
	for _, h := range current {
		if slices.Contains(previous, h) {
			continue
		}
		changed = true
		if e.IsDestroyed() {
			return
		}
		if id, ok := s.idOf(h); ok {
			event.Publish(bus, event.RegionEnter{EntityID: e.ID(), RegionID: id, Step: s.step})
		}
	}
	for _, h := range previous {
		if slices.Contains(current, h) {
			continue
		}
		changed = true
		if e.IsDestroyed() {
			return
		}
		if id, ok := s.idOf(h); ok {
			event.Publish(bus, event.RegionExit{EntityID: e.ID(), RegionID: id, Step: s.step})
		}
	}
	if !changed || e.IsDestroyed() {
		return
	}
	m.regions = slices.DeleteFunc(m.regions, func(h ecs.EntityID) bool {
		_, alive := s.scene.Lookup(h)
		return !alive
	})
	s.resolve(e, inside)
}

func (s *RegionSystem) idOf(h ecs.EntityID) (string, bool) {
	if e, ok := s.scene.Lookup(h); ok {
		return e.ID(), true
	}
	return "", false
}

// resolve folds the modifiers of the containing regions over e's base
// values, highest priority first. Equal priorities keep region iteration
// order. An Override shadows every lower-priority modifier on its key.
func (s *RegionSystem) resolve(e *ecs.Entity, inside []volume) {
	sort.SliceStable(inside, func(i, j int) bool {
		return inside[i].region.Priority > inside[j].region.Priority
	})

	props := make(map[string]vmath.Value)
	// sealed records the priority of the region that last overrode a key.
	// Regions of strictly lower priority no longer touch that key.
	sealed := make(map[string]int)
	for _, v := range inside {
		if v.e.IsDestroyed() {
			continue
		}
		for _, m := range v.region.Modifiers {
			key := ecs.FoldKey(m.Property)
			if p, ok := sealed[key]; ok && v.region.Priority < p {
				continue
			}
			cur, seen := props[key]
			if !seen {
				cur, _ = baseValue(e, key)
			}
			props[key] = vmath.Blend(cur, m.Value, m.BlendMode)
			if m.BlendMode == vmath.Override {
				sealed[key] = v.region.Priority
			}
		}
	}

	if p := e.Physics(); p != nil {
		p.EffectiveGravity = p.BaseGravity
		if g, ok := props[PropGravity]; ok {
			p.EffectiveGravity = g.AsVec()
		}
	}
	if mr, ok := ecs.Get[*component.MeshRenderer](e); ok {
		mr.Color = mr.BaseColor
		if c, ok := props[PropHue]; ok {
			mr.Color = c.AsColor().Clamp()
		}
		if c, ok := props[PropColor]; ok {
			mr.Color = c.AsColor().Clamp()
		}
	}
	e.SetEffectiveProperties(props)

	s.log.Debug("effective properties resolved",
		zap.String("entity", e.ID()),
		zap.Int("regions", len(inside)),
		zap.Int("properties", len(props)),
	)
}

// baseValue is the unmodified value of key on e. Unknown keys fall back to
// numeric entity variables.
func baseValue(e *ecs.Entity, key string) (vmath.Value, bool) {
	switch key {
	case PropGravity:
		if p := e.Physics(); p != nil {
			return vmath.Vector(p.BaseGravity), true
		}
	case PropMass:
		if p := e.Physics(); p != nil {
			return vmath.Scalar(p.Mass), true
		}
	case PropColor, PropHue:
		if mr, ok := ecs.Get[*component.MeshRenderer](e); ok {
			return vmath.RGB(mr.BaseColor), true
		}
	case PropAlpha:
		if mr, ok := ecs.Get[*component.MeshRenderer](e); ok {
			return vmath.Scalar(mr.Alpha), true
		}
	case PropIntensity:
		if l, ok := ecs.Get[*component.Light](e); ok {
			return vmath.Scalar(l.Intensity), true
		}
	}
	v, _ := e.Var(key)
	switch n := v.(type) {
	case float64:
		return vmath.Scalar(n), true
	case int:
		return vmath.Scalar(float64(n)), true
	}
	return vmath.Value{}, false
}
