package system

import (
	"math"
	"slices"
	"testing"

	"github.com/l1jgo/simkernel/internal/component"
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/vmath"
)

func TestRegionGridCandidates(t *testing.T) {
	g := newRegionGrid()
	// 0 spans cells -1..0 on every axis, 2 is too big to hash.
	g.add(0, vmath.V(0, 0, 0), vmath.V(4, 4, 4))
	g.add(1, vmath.V(20, 0, 0), vmath.V(2, 2, 2))
	g.add(2, vmath.V(0, 0, 0), vmath.V(1000, 1000, 1000))
	g.add(3, vmath.V(-9, 0, 0), vmath.V(2, 2, 2))

	cases := []struct {
		p    vmath.Vec3
		want []int
	}{
		{vmath.V(1, 1, 1), []int{0, 2}},
		{vmath.V(-1, -1, -1), []int{0, 2}},
		{vmath.V(20, 0, 0), []int{1, 2}},
		{vmath.V(-8.5, 0, 0), []int{2, 3}},
		{vmath.V(1e12, 0, 0), []int{2}},
	}
	var buf []int
	for _, tc := range cases {
		buf = g.candidates(tc.p, buf)
		if !slices.Equal(buf, tc.want) {
			t.Errorf("candidates(%v) = %v, want %v", tc.p, buf, tc.want)
		}
	}

	g.reset()
	if got := g.candidates(vmath.V(1, 1, 1), nil); len(got) != 0 {
		t.Errorf("after reset: %v", got)
	}
}

func TestRegionGridRejectsMalformedBoxes(t *testing.T) {
	g := newRegionGrid()
	g.add(0, vmath.V(0, 0, 0), vmath.V(-2, 2, 2))
	g.add(1, vmath.V(math.NaN(), 0, 0), vmath.V(2, 2, 2))
	g.add(2, vmath.V(0, 0, 0), vmath.V(math.Inf(1), 2, 2))
	if !slices.Equal(g.oversize, []int{0, 1, 2}) {
		t.Errorf("oversize %v", g.oversize)
	}
	if len(g.cells) != 0 {
		t.Errorf("cells %v", g.cells)
	}
}

func TestRegionSystemFindsRegionsAcrossCells(t *testing.T) {
	s := newGridScene(t)
	seen := watchRegions(s)
	NewRegionSystem(s, nil).Update(0)
	want := []string{"enter:edge:straddle", "enter:far:huge", "enter:edge:huge"}
	slices.Sort(want)
	got := seen.take()
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Errorf("events %v, want %v", got, want)
	}
}

func newGridScene(t *testing.T) *ecs.Scene {
	t.Helper()
	s := ecs.NewScene(ecs.Options{})
	spawn(t, s, "edge", component.NewTransform(vmath.V(8, 0, 0)))
	spawn(t, s, "far", component.NewTransform(vmath.V(300, 0, 0)))
	spawn(t, s, "straddle", component.NewTransform(vmath.V(7, 0, 0)), component.NewRegion(0, vmath.V(2, 2, 2)))
	spawn(t, s, "huge", component.NewTransform(vmath.V(0, 0, 0)), component.NewRegion(0, vmath.V(800, 800, 800)))
	return s
}
