package layout

import (
	"math"
	"sort"

	"github.com/quartercastle/vector"
)

type Rect struct {
	X, Y, Width, Height float64
}

func (r *Rect) Contains(pos vector.Vector) bool {
	return pos.X() >= r.X && pos.X() <= r.X+r.Width && pos.Y() >= r.Y && pos.Y() <= r.Y+r.Height
}

func (r Rect) Center() vector.Vector {
	return vector.Vector{r.X + r.Width/2, r.Y + r.Height/2}
}

// Overlaps reports whether two rectangles intersect. Touching edges count as
// overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, Width: r.Width + 2*margin, Height: r.Height + 2*margin}
}

// Dist returns the distance between a and b, defaulting coincident points to
// a minimal nonzero distance to keep force math finite.
func Dist(a, b vector.Vector) float64 {
	d := a.Sub(b).Magnitude()
	if d < minSeparation {
		return minSeparation
	}
	return d
}

// minSeparation is the substitute distance for coincident points.
const minSeparation = 1.0

// Centroid returns the arithmetic mean of the given points. The zero vector
// is returned for an empty input.
func Centroid(points []vector.Vector) vector.Vector {
	c := vector.Vector{0, 0}
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(points)))
}

// BoundingBox returns the minimal axis-aligned rectangle containing all
// points. ok is false for an empty input.
func BoundingBox(points []vector.Vector) (box Rect, ok bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	minX, minY := math.Inf(+1), math.Inf(+1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X())
		minY = math.Min(minY, p.Y())
		maxX = math.Max(maxX, p.X())
		maxY = math.Max(maxY, p.Y())
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// ConvexHull computes the convex hull of the given points using Andrew's
// monotone chain, returned in counter-clockwise order. Inputs of fewer than
// three points are returned as-is (copied).
func ConvexHull(points []vector.Vector) []vector.Vector {
	if len(points) < 3 {
		hull := make([]vector.Vector, len(points))
		copy(hull, points)
		return hull
	}
	sorted := make([]vector.Vector, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X() != sorted[j].X() {
			return sorted[i].X() < sorted[j].X()
		}
		return sorted[i].Y() < sorted[j].Y()
	})
	cross := func(o, a, b vector.Vector) float64 {
		return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
	}
	var lower, upper []vector.Vector
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// jitterAround returns a point randomly displaced from center by at most
// spread in each axis, used to seed uncached node positions.
func jitterAround(center vector.Vector, spread float64, rndSource func() float64) vector.Vector {
	return vector.Vector{
		center.X() + (rndSource()-0.5)*2*spread,
		center.Y() + (rndSource()-0.5)*2*spread,
	}
}
