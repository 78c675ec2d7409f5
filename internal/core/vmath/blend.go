package vmath

import (
	"fmt"
	"strings"
)

// BlendMode is the rule used to fold a modifier into a running value.
type BlendMode uint8

const (
	Override BlendMode = iota
	Add
	Multiply
)

func (m BlendMode) String() string {
	switch m {
	case Add:
		return "add"
	case Multiply:
		return "multiply"
	}
	return "override"
}

func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "override", "":
		return Override, nil
	case "add":
		return Add, nil
	case "multiply", "mul":
		return Multiply, nil
	}
	return Override, fmt.Errorf("unknown blend mode %q", s)
}

func (m BlendMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *BlendMode) UnmarshalText(b []byte) error {
	v, err := ParseBlendMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Blend folds mod into cur. The result keeps the kind of cur, except that a
// scalar running value widens to the modifier's kind when the modifier is a
// vector or color. Color results are clipped to [0,1].
func Blend(cur, mod Value, mode BlendMode) Value {
	if mode == Override || cur.IsZero() {
		return mod
	}
	if mod.IsZero() {
		return cur
	}
	kind := cur.Kind
	if kind == KindScalar && mod.Kind != KindScalar {
		kind = mod.Kind
	}
	switch kind {
	case KindScalar:
		if mode == Add {
			return Scalar(cur.Scalar + mod.Scalar)
		}
		return Scalar(cur.Scalar * mod.Scalar)
	case KindVector:
		if mode == Add {
			return Vector(cur.AsVec().Add(mod.AsVec()))
		}
		return Vector(cur.AsVec().Mul(mod.AsVec()))
	case KindColor:
		if mode == Add {
			return RGB(cur.AsColor().Add(mod.AsColor()))
		}
		return RGB(cur.AsColor().Mul(mod.AsColor()))
	}
	return cur
}
