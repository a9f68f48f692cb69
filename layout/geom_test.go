package layout

import (
	"testing"

	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"
)

func TestDist(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(5.0, Dist(vector.Vector{0, 0}, vector.Vector{3, 4}))
	assert.Equal(1.0, Dist(vector.Vector{2, 2}, vector.Vector{2, 2}), "coincident points must default to a nonzero distance")
}

func TestCentroid(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(vector.Vector{0, 0}, Centroid(nil))
	got := Centroid([]vector.Vector{{0, 0}, {4, 0}, {2, 6}})
	assert.Equal(vector.Vector{2, 2}, got)
}

func TestBoundingBox(t *testing.T) {
	_, ok := BoundingBox(nil)
	assert.False(t, ok)
	box, ok := BoundingBox([]vector.Vector{{1, 2}, {5, -2}, {3, 3}})
	assert.True(t, ok)
	assert.Equal(t, Rect{X: 1, Y: -2, Width: 4, Height: 5}, box)
}

func TestRect_Overlaps(t *testing.T) {
	for _, test := range []struct {
		Name     string
		A, B     Rect
		Expected bool
	}{
		{Name: "identical", A: Rect{0, 0, 10, 10}, B: Rect{0, 0, 10, 10}, Expected: true},
		{Name: "partial", A: Rect{0, 0, 10, 10}, B: Rect{5, 5, 10, 10}, Expected: true},
		{Name: "disjoint x", A: Rect{0, 0, 10, 10}, B: Rect{20, 0, 5, 5}, Expected: false},
		{Name: "disjoint y", A: Rect{0, 0, 10, 10}, B: Rect{0, 20, 5, 5}, Expected: false},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, test.A.Overlaps(test.B))
			assert.Equal(t, test.Expected, test.B.Overlaps(test.A))
		})
	}
}

func TestConvexHull(t *testing.T) {
	points := []vector.Vector{
		{0, 0}, {4, 0}, {4, 4}, {0, 4},
		{2, 2}, {1, 3}, // interior
	}
	hull := ConvexHull(points)
	assert := assert.New(t)
	assert.Len(hull, 4)
	for _, corner := range []vector.Vector{{0, 0}, {4, 0}, {4, 4}, {0, 4}} {
		assert.Contains(hull, corner)
	}
	assert.NotContains(hull, vector.Vector{2, 2})
}

func TestConvexHull_degenerate(t *testing.T) {
	two := []vector.Vector{{1, 1}, {2, 2}}
	assert.Equal(t, two, ConvexHull(two), "fewer than 3 points are returned as-is")
}
