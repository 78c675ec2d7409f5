package vmath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the active member of a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindScalar
	KindVector
	KindColor
)

func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindColor:
		return "color"
	}
	return "none"
}

// Value is a property value carried by region modifiers and effective
// property snapshots: a number, a 3-vector or a color.
type Value struct {
	Kind   ValueKind
	Scalar float64
	Vec    Vec3
	Color  Color
}

func Scalar(f float64) Value { return Value{Kind: KindScalar, Scalar: f} }
func Vector(v Vec3) Value    { return Value{Kind: KindVector, Vec: v} }
func RGB(c Color) Value      { return Value{Kind: KindColor, Color: c} }

func (v Value) IsZero() bool { return v.Kind == KindNone }

// AsVec widens the value to a vector. Scalars broadcast to all components.
func (v Value) AsVec() Vec3 {
	switch v.Kind {
	case KindScalar:
		return Vec3{v.Scalar, v.Scalar, v.Scalar}
	case KindColor:
		return v.Color.Vec()
	}
	return v.Vec
}

// AsColor widens the value to a color. Scalars broadcast to all channels.
func (v Value) AsColor() Color {
	switch v.Kind {
	case KindScalar:
		return Color{v.Scalar, v.Scalar, v.Scalar}
	case KindVector:
		return Color{v.Vec.X, v.Vec.Y, v.Vec.Z}
	}
	return v.Color
}

// AsScalar narrows the value to a number; vectors and colors yield their first component.
func (v Value) AsScalar() float64 {
	switch v.Kind {
	case KindVector:
		return v.Vec.X
	case KindColor:
		return v.Color.R
	}
	return v.Scalar
}

func (v Value) String() string {
	switch v.Kind {
	case KindScalar:
		return fmt.Sprintf("%g", v.Scalar)
	case KindVector:
		return fmt.Sprintf("(%g, %g, %g)", v.Vec.X, v.Vec.Y, v.Vec.Z)
	case KindColor:
		return v.Color.Hex()
	}
	return "<none>"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindScalar:
		return json.Marshal(v.Scalar)
	case KindVector:
		return json.Marshal(v.Vec)
	case KindColor:
		return json.Marshal(v.Color.Hex())
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		c, err := ParseHex(s)
		if err != nil {
			return err
		}
		*v = RGB(c)
	case '{':
		var vec Vec3
		if err := json.Unmarshal(b, &vec); err != nil {
			return err
		}
		*v = Vector(vec)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("modifier value: %w", err)
		}
		*v = Scalar(f)
	}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindScalar:
		return v.Scalar, nil
	case KindVector:
		return v.Vec, nil
	case KindColor:
		return v.Color.Hex(), nil
	}
	return nil, nil
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		var vec Vec3
		if err := n.Decode(&vec); err != nil {
			return err
		}
		*v = Vector(vec)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*v = Value{}
			return nil
		}
		if strings.HasPrefix(n.Value, "#") {
			c, err := ParseHex(n.Value)
			if err != nil {
				return err
			}
			*v = RGB(c)
			return nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return fmt.Errorf("modifier value: %w", err)
		}
		*v = Scalar(f)
	default:
		return fmt.Errorf("modifier value: unsupported yaml node at line %d", n.Line)
	}
	return nil
}
