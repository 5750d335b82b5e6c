package blob

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microseg/internal/models"
)

func circlePoints(cx, cy, r float64, n int) []models.Point {
	pts := make([]models.Point, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = models.Point{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
	}
	return pts
}

func TestDetectTooFewPointsReturnsEmpty(t *testing.T) {
	d := NewHullDetector()

	assert.Empty(t, d.Detect(nil, 1, 0.5))
	assert.Empty(t, d.Detect([]models.Point{{X: 1, Y: 1}}, 1, 0.5))
	assert.Empty(t, d.Detect([]models.Point{{X: 1, Y: 1}, {X: 10, Y: 10}}, 1, 0.5))
}

func TestDetectCollinearPointsReturnsEmpty(t *testing.T) {
	pts := []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 30, Y: 0}}

	assert.Empty(t, NewHullDetector().Detect(pts, 1, 0.5))
}

func TestDetectNearDuplicatesCollapseBelowThree(t *testing.T) {
	// Three points all within one pixel diagonal of each other merge into
	// one, leaving no boundary to fit.
	pts := []models.Point{{X: 5, Y: 5}, {X: 5.5, Y: 5.5}, {X: 6, Y: 5}}

	assert.Empty(t, NewHullDetector().Detect(pts, 1, 0.5))
}

func TestDetectOffsetAreaMonotonicInSigma(t *testing.T) {
	pts := circlePoints(50, 50, 20, 24)
	d := NewHullDetector()

	previous := 0.0
	for _, sigma := range []float64{0.5, 1, 2, 4, 8} {
		boundary := d.Detect(pts, sigma, 0)
		require.NotEmpty(t, boundary, "sigma %v", sigma)

		area := models.PolygonArea(boundary)
		assert.Greater(t, area, previous, "area must grow with sigma %v", sigma)
		previous = area
	}
}

func TestDetectOffsetEnclosesOriginalHull(t *testing.T) {
	pts := circlePoints(50, 50, 20, 24)

	boundary := NewHullDetector().Detect(pts, 3, 0)
	require.NotEmpty(t, boundary)

	// Every offset vertex moves away from the circle center.
	center := models.Point{X: 50, Y: 50}
	for _, v := range boundary {
		assert.Greater(t, v.DistanceTo(center), 20.0)
	}
}

func TestDetectShrinkTightensBoundary(t *testing.T) {
	// A convex ring of points plus a deep notch of interior points. With a
	// high shrink factor the boundary digs into the notch, losing area.
	pts := circlePoints(50, 50, 20, 24)
	for i := 0; i < 6; i++ {
		pts = append(pts, models.Point{X: 50, Y: 34 + 3*float64(i)})
	}

	d := NewHullDetector()
	convex := d.Detect(pts, 0.1, 0)
	concave := d.Detect(pts, 0.1, 1)

	require.NotEmpty(t, convex)
	require.NotEmpty(t, concave)
	assert.GreaterOrEqual(t, models.PolygonArea(convex), models.PolygonArea(concave))
	assert.GreaterOrEqual(t, len(concave), len(convex))
}

func TestConvexHullOrientation(t *testing.T) {
	square := []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 5, Y: 5}}

	hull := convexHull(square)
	require.Len(t, hull, 4)
	assert.Positive(t, models.SignedPolygonArea(hull), "monotone chain must yield counter-clockwise order")
}

func TestDedupPointsMergesWithinDiagonal(t *testing.T) {
	pts := []models.Point{
		{X: 0, Y: 0},
		{X: 1, Y: 1},   // distance sqrt(2), merged
		{X: 3, Y: 0},   // kept
		{X: 3.5, Y: 0}, // merged into previous
	}

	kept := dedupPoints(pts)
	assert.Len(t, kept, 2)
}
