package system

import (
	"math"
	"slices"

	"github.com/l1jgo/simkernel/internal/core/vmath"
)

// regionCellSize is the edge length of one broadphase cell in world units.
const regionCellSize = 8.0

// maxRegionCells caps how many cells one region may occupy. Larger regions
// are kept on a list tested against every subject.
const maxRegionCells = 64

// cellLimit keeps cell coordinates inside int32.
const cellLimit = 1e9

// cellPad widens hashed boxes so rounding at a cell edge never drops a
// region the exact test would accept.
const cellPad = 1e-6

type cellKey struct {
	cx, cy, cz int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / regionCellSize))
}

// regionGrid is a uniform-grid broadphase over region volumes. It is rebuilt
// every step and indexes into the volume slice it was built from.
// Accessed only from the simulation goroutine, no locks.
type regionGrid struct {
	cells    map[cellKey][]int
	oversize []int
}

func newRegionGrid() *regionGrid {
	return &regionGrid{cells: make(map[cellKey][]int)}
}

func (g *regionGrid) reset() {
	clear(g.cells)
	g.oversize = g.oversize[:0]
}

// add registers volume i in every cell its box overlaps. Box bounds are
// inclusive, matching containment.
func (g *regionGrid) add(i int, center, size vmath.Vec3) {
	half := size.Scale(0.5).Add(vmath.V(cellPad, cellPad, cellPad))
	lo, hi := center.Sub(half), center.Add(half)
	if !boundedBox(lo, hi) {
		g.oversize = append(g.oversize, i)
		return
	}
	x0, x1 := toCell(lo.X), toCell(hi.X)
	y0, y1 := toCell(lo.Y), toCell(hi.Y)
	z0, z1 := toCell(lo.Z), toCell(hi.Z)
	n := int64(x1-x0+1) * int64(y1-y0+1) * int64(z1-z0+1)
	if n > maxRegionCells {
		g.oversize = append(g.oversize, i)
		return
	}
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for cz := z0; cz <= z1; cz++ {
				k := cellKey{cx, cy, cz}
				g.cells[k] = append(g.cells[k], i)
			}
		}
	}
}

// candidates returns, in ascending index order, the volumes that may
// contain p. buf is reused for the result. Caller does the exact test.
func (g *regionGrid) candidates(p vmath.Vec3, buf []int) []int {
	buf = buf[:0]
	if math.Abs(p.X) < cellLimit && math.Abs(p.Y) < cellLimit && math.Abs(p.Z) < cellLimit {
		buf = append(buf, g.cells[cellKey{toCell(p.X), toCell(p.Y), toCell(p.Z)}]...)
	}
	buf = append(buf, g.oversize...)
	slices.Sort(buf)
	return buf
}

// boundedBox reports whether lo..hi is a well-formed box small enough to
// hash. NaN fails every comparison and lands here too.
func boundedBox(lo, hi vmath.Vec3) bool {
	for _, b := range [][2]float64{{lo.X, hi.X}, {lo.Y, hi.Y}, {lo.Z, hi.Z}} {
		if !(b[0] <= b[1]) || !(b[0] > -cellLimit) || !(b[1] < cellLimit) {
			return false
		}
	}
	return true
}
