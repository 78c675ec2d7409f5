package vmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Color is a linear RGB triple with channels nominally in [0,1].
// Encoded as "#rrggbb" in level documents.
type Color struct {
	R, G, B float64
}

var White = Color{1, 1, 1}

// ParseHex accepts "#rrggbb", "rrggbb" and the short "#rgb" form.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{
		R: float64(n>>16&0xff) / 255,
		G: float64(n>>8&0xff) / 255,
		B: float64(n&0xff) / 255,
	}, nil
}

func MustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex renders the clamped color as "#rrggbb".
func (c Color) Hex() string {
	c = c.Clamp()
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 { return uint8(math.Round(v * 255)) }

// Clamp clips every channel into [0,1]. NaN becomes 0.
func (c Color) Clamp() Color {
	return Color{clip01(c.R), clip01(c.G), clip01(c.B)}
}

func clip01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (c Color) Add(o Color) Color { return Color{c.R + o.R, c.G + o.G, c.B + o.B}.Clamp() }

func (c Color) Mul(o Color) Color { return Color{c.R * o.R, c.G * o.G, c.B * o.B}.Clamp() }

func (c Color) Vec() Vec3 { return Vec3{c.R, c.G, c.B} }

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) MarshalYAML() (any, error) { return c.Hex(), nil }

func (c *Color) UnmarshalYAML(n *yaml.Node) error { return c.UnmarshalText([]byte(n.Value)) }
