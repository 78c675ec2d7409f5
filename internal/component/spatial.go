package component

import (
	"encoding/json"

	"github.com/l1jgo/simkernel/internal/core/vmath"
	"gopkg.in/yaml.v3"
)

// Transform is the local placement of an entity. ParentID is a non-owning
// lookup key into the same scene; it never keeps the parent alive.
type Transform struct {
	Position vmath.Vec3 `json:"position" yaml:"position"`
	Rotation vmath.Vec3 `json:"rotation" yaml:"rotation"` // Euler angles, radians
	Scale    vmath.Vec3 `json:"scale" yaml:"scale"`
	ParentID string     `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

func NewTransform(pos vmath.Vec3) *Transform {
	return &Transform{Position: pos, Scale: vmath.One()}
}

func (t *Transform) UnmarshalJSON(b []byte) error {
	type plain Transform
	p := plain(*NewTransform(vmath.Vec3{}))
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Transform(p)
	return nil
}

func (t *Transform) UnmarshalYAML(n *yaml.Node) error {
	type plain Transform
	p := plain(*NewTransform(vmath.Vec3{}))
	if err := n.Decode(&p); err != nil {
		return err
	}
	*t = Transform(p)
	return nil
}

// Physics carries the integrator state. EffectiveGravity is derived by the
// region resolver from BaseGravity and is never persisted.
type Physics struct {
	Velocity    vmath.Vec3 `json:"velocity" yaml:"velocity"`
	Mass        float64    `json:"mass" yaml:"mass"`
	BaseGravity vmath.Vec3 `json:"gravity" yaml:"gravity"`
	IsStatic    bool       `json:"isStatic" yaml:"isStatic"`
	UseGravity  bool       `json:"useGravity" yaml:"useGravity"`

	EffectiveGravity vmath.Vec3 `json:"-" yaml:"-"`
}

var DefaultGravity = vmath.V(0, -9.81, 0)

func NewPhysics() *Physics {
	return &Physics{
		Mass:             1,
		BaseGravity:      DefaultGravity,
		EffectiveGravity: DefaultGravity,
		UseGravity:       true,
	}
}

func (p *Physics) OnInitialize() { p.EffectiveGravity = p.BaseGravity }

func (p *Physics) UnmarshalJSON(b []byte) error {
	type plain Physics
	d := plain(*NewPhysics())
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*p = Physics(d)
	p.EffectiveGravity = p.BaseGravity
	return nil
}

func (p *Physics) UnmarshalYAML(n *yaml.Node) error {
	type plain Physics
	d := plain(*NewPhysics())
	if err := n.Decode(&d); err != nil {
		return err
	}
	*p = Physics(d)
	p.EffectiveGravity = p.BaseGravity
	return nil
}

// Modifier is one property override carried by a region.
type Modifier struct {
	Property  string          `json:"property" yaml:"property"`
	Value     vmath.Value     `json:"value" yaml:"value"`
	BlendMode vmath.BlendMode `json:"blendMode" yaml:"blendMode"`
}

// Region is an axis-aligned box volume centered on the entity's transform.
// Size is the full extent of the box.
type Region struct {
	Priority  int        `json:"priority" yaml:"priority"`
	Size      vmath.Vec3 `json:"size" yaml:"size"`
	Modifiers []Modifier `json:"modifiers" yaml:"modifiers"`
	Visible   bool       `json:"visible,omitempty" yaml:"visible,omitempty"`
}

func NewRegion(priority int, size vmath.Vec3, mods ...Modifier) *Region {
	return &Region{Priority: priority, Size: size, Modifiers: mods}
}

// Logic holds behaviour source text. The compiled form lives with the logic
// runner, keyed by entity handle.
type Logic struct {
	Source string `json:"code" yaml:"code"`
}
