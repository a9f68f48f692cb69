// adapted from https://github.com/jwhandley/graphyz/blob/main/quadtree.go
package layout

import (
	"github.com/quartercastle/vector"
)

const quadTreeCapacity = 8

// QuadTree aggregates node positions for Barnes-Hut approximation of the
// many-body charge force. Bodies are arena indices into the working set's
// node slice; each cell carries the body count as its mass and the
// mass-weighted center used when a cell is far enough away to be treated as
// one body.
type QuadTree struct {
	center   vector.Vector
	mass     float64
	region   Rect
	bodies   []int
	children [4]*QuadTree
	capacity int
}

func NewQuadTree(region Rect) *QuadTree {
	return &QuadTree{
		region:   region,
		bodies:   make([]int, 0, quadTreeCapacity),
		capacity: quadTreeCapacity,
	}
}

// Rebuild clears the tree and inserts every node of the working set. Nodes
// outside the tree region are skipped; they re-enter the charge pass once
// the region is resized around the content.
func (qt *QuadTree) Rebuild(ws *WorkingSet) {
	qt.clear()
	for i := range ws.Nodes {
		qt.insert(ws, i, 0)
	}
	qt.aggregate(ws)
}

func (qt *QuadTree) clear() {
	qt.center = vector.Vector{0, 0}
	qt.mass = 0
	qt.bodies = qt.bodies[:0]
	for i := range qt.children {
		qt.children[i] = nil
	}
}

// maxQuadTreeDepth caps subdivision so that many coincident bodies cannot
// recurse forever; overflowing bodies stay in the deepest cell.
const maxQuadTreeDepth = 32

func (qt *QuadTree) insert(ws *WorkingSet, body int, depth int) bool {
	if !qt.region.Contains(ws.Nodes[body].Pos) {
		return false
	}
	if len(qt.bodies) < qt.capacity || depth >= maxQuadTreeDepth {
		qt.bodies = append(qt.bodies, body)
		return true
	}
	if qt.children[0] == nil {
		qt.subdivide()
	}
	for _, child := range qt.children {
		if child.insert(ws, body, depth+1) {
			return true
		}
	}
	return false
}

func (qt *QuadTree) subdivide() {
	midX := qt.region.X + qt.region.Width/2
	midY := qt.region.Y + qt.region.Height/2
	halfW := qt.region.Width / 2
	halfH := qt.region.Height / 2
	qt.children[0] = NewQuadTree(Rect{X: qt.region.X, Y: qt.region.Y, Width: halfW, Height: halfH}) // Top Left
	qt.children[1] = NewQuadTree(Rect{X: midX, Y: qt.region.Y, Width: halfW, Height: halfH})        // Top Right
	qt.children[2] = NewQuadTree(Rect{X: qt.region.X, Y: midY, Width: halfW, Height: halfH})        // Bottom Left
	qt.children[3] = NewQuadTree(Rect{X: midX, Y: midY, Width: halfW, Height: halfH})               // Bottom Right
}

func (qt *QuadTree) aggregate(ws *WorkingSet) {
	for _, body := range qt.bodies {
		qt.mass++
		qt.center = qt.center.Add(ws.Nodes[body].Pos)
	}
	for _, child := range qt.children {
		if child == nil {
			continue
		}
		child.aggregate(ws)
		qt.mass += child.mass
		qt.center = qt.center.Add(child.center.Scale(child.mass))
	}
	if qt.mass > 0 {
		qt.center = qt.center.Scale(1 / qt.mass)
	}
}

// Accumulate adds the approximated charge contribution acting on body to
// out. Cells whose extent-over-distance ratio is below theta are treated as
// a single aggregated body, see
// https://en.wikipedia.org/wiki/Barnes%E2%80%93Hut_simulation#Calculating_the_force_acting_on_a_body
// coincident supplies a substitute unit direction for bodies sharing a
// position.
func (qt *QuadTree) Accumulate(out *vector.Vector, ws *WorkingSet, body int, strength, theta float64, coincident func() vector.Vector) {
	pos := ws.Nodes[body].Pos
	if qt.children[0] != nil {
		d := Dist(pos, qt.center)
		if qt.region.Width/d < theta {
			addCharge(out, pos, qt.center, strength*qt.mass, coincident)
			return
		}
	}
	for _, other := range qt.bodies {
		if other == body {
			continue
		}
		addCharge(out, pos, ws.Nodes[other].Pos, strength, coincident)
	}
	for _, child := range qt.children {
		if child != nil && child.mass > 0 {
			child.Accumulate(out, ws, body, strength, theta, coincident)
		}
	}
}

// addCharge applies an inverse-square contribution from source onto the body
// at pos. Negative strength repels: the velocity delta points away from the
// source.
func addCharge(out *vector.Vector, pos, source vector.Vector, strength float64, coincident func() vector.Vector) {
	delta := source.Sub(pos)
	d := delta.Magnitude()
	if d < minSeparation {
		delta = coincident()
		d = minSeparation
	}
	vector.In(*out).Add(delta.Scale(strength / (d * d)))
}
