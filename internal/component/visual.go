package component

import (
	"encoding/json"

	"github.com/l1jgo/simkernel/internal/core/vmath"
	"gopkg.in/yaml.v3"
)

// Visual components are carried for the external renderer only. The core
// never reads them except as base values for region color/alpha overrides.

type MeshRenderer struct {
	Shape     string      `json:"shape" yaml:"shape"` // box, sphere, cylinder, capsule, plane
	BaseColor vmath.Color `json:"color" yaml:"color"`
	Alpha     float64     `json:"alpha" yaml:"alpha"`
	Texture   string      `json:"texture,omitempty" yaml:"texture,omitempty"`

	// Color is the region-resolved tint.
	Color vmath.Color `json:"-" yaml:"-"`
}

func NewMeshRenderer(shape string, color vmath.Color) *MeshRenderer {
	return &MeshRenderer{Shape: shape, BaseColor: color, Color: color, Alpha: 1}
}

func (m *MeshRenderer) OnInitialize() { m.Color = m.BaseColor }

func (m *MeshRenderer) UnmarshalJSON(b []byte) error {
	type plain MeshRenderer
	d := plain(*NewMeshRenderer("box", vmath.White))
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*m = MeshRenderer(d)
	m.Color = m.BaseColor
	return nil
}

func (m *MeshRenderer) UnmarshalYAML(n *yaml.Node) error {
	type plain MeshRenderer
	d := plain(*NewMeshRenderer("box", vmath.White))
	if err := n.Decode(&d); err != nil {
		return err
	}
	*m = MeshRenderer(d)
	m.Color = m.BaseColor
	return nil
}

type Camera struct {
	FOV     float64 `json:"fov" yaml:"fov"`
	Near    float64 `json:"near" yaml:"near"`
	Far     float64 `json:"far" yaml:"far"`
	Primary bool    `json:"primary,omitempty" yaml:"primary,omitempty"`
}

type Light struct {
	Type      string      `json:"type" yaml:"type"` // hemispheric, point, directional
	Intensity float64     `json:"intensity" yaml:"intensity"`
	Color     vmath.Color `json:"color" yaml:"color"`
}
