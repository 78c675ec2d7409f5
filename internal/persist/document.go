package persist

import (
	"fmt"
	"maps"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/vmath"
	"go.uber.org/zap"
)

// LevelDocument is the persisted form of a Scene. It carries base data only:
// effective properties, effective gravity and compiled scripts are derived
// at runtime and never appear here.
type LevelDocument struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	SpecVersion string           `json:"specVersion" yaml:"specVersion"`
	Seed        int64            `json:"seed" yaml:"seed"`
	Environment Environment      `json:"environment" yaml:"environment"`
	Variables   map[string]any   `json:"variables,omitempty" yaml:"variables,omitempty"`
	Entities    []EntityDocument `json:"entities" yaml:"entities"`
}

type Environment struct {
	Gravity      vmath.Vec3  `json:"gravity" yaml:"gravity"`
	TimeScale    float64     `json:"timeScale" yaml:"timeScale"`
	AmbientColor vmath.Color `json:"ambientColor" yaml:"ambientColor"`
}

type EntityDocument struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	Disabled   bool                `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Variables  map[string]any      `json:"variables,omitempty" yaml:"variables,omitempty"`
	Components []ComponentDocument `json:"components" yaml:"components"`
}

// ComponentDocument is one tagged component. Exactly the field named by
// Type is set.
type ComponentDocument struct {
	Type         string                  `json:"type" yaml:"type"`
	Transform    *component.Transform    `json:"transform,omitempty" yaml:"transform,omitempty"`
	MeshRenderer *component.MeshRenderer `json:"meshRenderer,omitempty" yaml:"meshRenderer,omitempty"`
	Camera       *component.Camera       `json:"camera,omitempty" yaml:"camera,omitempty"`
	Light        *component.Light        `json:"light,omitempty" yaml:"light,omitempty"`
	Physics      *component.Physics      `json:"physics,omitempty" yaml:"physics,omitempty"`
	Region       *component.Region       `json:"region,omitempty" yaml:"region,omitempty"`
	Logic        *component.Logic        `json:"logic,omitempty" yaml:"logic,omitempty"`
}

func componentDocument(c component.Component) ComponentDocument {
	d := ComponentDocument{Type: c.Kind().String()}
	switch v := c.(type) {
	case *component.Transform:
		cp := *v
		d.Transform = &cp
	case *component.MeshRenderer:
		cp := *v
		d.MeshRenderer = &cp
	case *component.Camera:
		cp := *v
		d.Camera = &cp
	case *component.Light:
		cp := *v
		d.Light = &cp
	case *component.Physics:
		cp := *v
		d.Physics = &cp
	case *component.Region:
		cp := *v
		cp.Modifiers = append([]component.Modifier(nil), v.Modifiers...)
		d.Region = &cp
	case *component.Logic:
		cp := *v
		d.Logic = &cp
	}
	return d
}

// Component returns a fresh component built from the document.
func (d ComponentDocument) Component() (component.Component, error) {
	kind, err := component.ParseKind(d.Type)
	if err != nil {
		return nil, err
	}
	var c component.Component
	switch kind {
	case component.KindTransform:
		if d.Transform != nil {
			cp := *d.Transform
			c = &cp
		}
	case component.KindMeshRenderer:
		if d.MeshRenderer != nil {
			cp := *d.MeshRenderer
			c = &cp
		}
	case component.KindCamera:
		if d.Camera != nil {
			cp := *d.Camera
			c = &cp
		}
	case component.KindLight:
		if d.Light != nil {
			cp := *d.Light
			c = &cp
		}
	case component.KindPhysics:
		if d.Physics != nil {
			cp := *d.Physics
			c = &cp
		}
	case component.KindRegion:
		if d.Region != nil {
			cp := *d.Region
			cp.Modifiers = append([]component.Modifier(nil), d.Region.Modifiers...)
			c = &cp
		}
	case component.KindLogic:
		if d.Logic != nil {
			cp := *d.Logic
			c = &cp
		}
	}
	if c == nil {
		return nil, fmt.Errorf("component %s: missing %s body", d.Type, kind)
	}
	return c, nil
}

// Snapshot captures the base data of every live entity, in creation order.
func Snapshot(s *ecs.Scene) *LevelDocument {
	doc := &LevelDocument{
		ID:          s.ID,
		Name:        s.Name,
		SpecVersion: ecs.SpecVersion,
		Seed:        s.Seed(),
		Environment: Environment{
			Gravity:      s.Gravity,
			TimeScale:    s.TimeScale,
			AmbientColor: s.AmbientColor,
		},
		Variables: cloneVars(s.Vars),
		Entities:  make([]EntityDocument, 0, s.Len()),
	}
	s.Each(func(e *ecs.Entity) {
		ed := EntityDocument{
			ID:        e.ID(),
			Name:      e.Name,
			Disabled:  e.State() == ecs.Disabled,
			Variables: cloneVars(e.Vars),
		}
		for _, c := range e.Components() {
			ed.Components = append(ed.Components, componentDocument(c))
		}
		doc.Entities = append(doc.Entities, ed)
	})
	return doc
}

// Restore builds a live Scene from doc. Every entity is activated, then
// disabled again when the document marks it so.
func Restore(doc *LevelDocument, log *zap.Logger) (*ecs.Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if doc.SpecVersion != "" && doc.SpecVersion != ecs.SpecVersion {
		log.Warn("level spec version differs",
			zap.String("level", doc.ID),
			zap.String("document", doc.SpecVersion),
			zap.String("runtime", ecs.SpecVersion),
		)
	}
	gravity := doc.Environment.Gravity
	s := ecs.NewScene(ecs.Options{
		Name:         doc.Name,
		Seed:         doc.Seed,
		Gravity:      &gravity,
		TimeScale:    doc.Environment.TimeScale,
		AmbientColor: doc.Environment.AmbientColor,
		Log:          log,
	})
	s.ID = doc.ID
	maps.Copy(s.Vars, doc.Variables)

	for _, ed := range doc.Entities {
		e, err := s.CreateEntity(ed.ID)
		if err != nil {
			return nil, fmt.Errorf("restore level %q: %w", doc.ID, err)
		}
		e.Name = ed.Name
		maps.Copy(e.Vars, ed.Variables)
		for _, cd := range ed.Components {
			c, err := cd.Component()
			if err != nil {
				return nil, fmt.Errorf("restore entity %q: %w", ed.ID, err)
			}
			if err := e.Add(c); err != nil {
				return nil, fmt.Errorf("restore entity %q: %w", ed.ID, err)
			}
		}
	}
	// Activate after every entity exists so parent lookups resolve.
	for _, ed := range doc.Entities {
		e, _ := s.Entity(ed.ID)
		if err := e.Activate(); err != nil {
			return nil, fmt.Errorf("restore entity %q: %w", ed.ID, err)
		}
		if ed.Disabled {
			_ = e.Disable()
		}
	}
	return s, nil
}

func cloneVars(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
