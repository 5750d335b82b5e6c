package blob

import (
	"math"
	"sort"

	"microseg/internal/models"
)

// dedupTolerance merges near-coincident points. Pixel-grid sampling yields
// redundant peak locations up to one diagonal step apart.
var dedupTolerance = math.Sqrt2 + 1e-9

// HullDetector fits an alpha-shape boundary over a detected point set and
// offsets it outward by the blob smoothing scale. Detected peaks sit at blob
// centers; the true blob extent is roughly sigma larger.
type HullDetector struct{}

func NewHullDetector() *HullDetector {
	return &HullDetector{}
}

// Detect returns the offset boundary polygon of points, or an empty slice
// when no boundary can be fitted (fewer than 3 distinct points, collinear
// input). An empty result means "no detectable blob boundary", not an error.
func (d *HullDetector) Detect(points []models.Point, sigma, shrink float64) []models.Point {
	if sigma < minSigma {
		sigma = minSigma
	}

	deduped := dedupPoints(points)
	if len(deduped) < 3 {
		return nil
	}

	hull := convexHull(deduped)
	if len(hull) < 3 || models.PolygonArea(hull) == 0 {
		return nil
	}

	boundary := concaveRefine(hull, deduped, shrink)
	normals := smoothedOutwardNormals(boundary)

	offset := make([]models.Point, len(boundary))
	for i, v := range boundary {
		offset[i] = v.Add(normals[i].Scale(sigma))
	}

	return offset
}

// dedupPoints keeps the first of any cluster of points closer than the
// dedup tolerance, preserving input order.
func dedupPoints(points []models.Point) []models.Point {
	kept := make([]models.Point, 0, len(points))
	for _, p := range points {
		duplicate := false
		for _, q := range kept {
			if p.DistanceTo(q) < dedupTolerance {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, p)
		}
	}
	return kept
}

// convexHull is Andrew's monotone chain, returning vertices in
// counter-clockwise order without the closing duplicate.
func convexHull(points []models.Point) []models.Point {
	pts := make([]models.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	n := len(pts)
	if n < 3 {
		return pts
	}

	hull := make([]models.Point, 0, 2*n)

	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

func cross(o, a, b models.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// concaveRefine digs long hull edges toward interior points, tightening the
// boundary around concavities. shrink in (0,1] controls how aggressively
// edges are split: 0 leaves the convex hull untouched, 1 digs every edge
// longer than the average. Deterministic and bounded by the point count.
func concaveRefine(hull []models.Point, all []models.Point, shrink float64) []models.Point {
	if shrink <= 0 {
		return hull
	}
	if shrink > 1 {
		shrink = 1
	}

	onHull := make(map[models.Point]bool, len(hull))
	for _, v := range hull {
		onHull[v] = true
	}

	interior := make([]models.Point, 0, len(all))
	for _, p := range all {
		if !onHull[p] {
			interior = append(interior, p)
		}
	}

	boundary := append([]models.Point(nil), hull...)

	for round := 0; round < len(all) && len(interior) > 0; round++ {
		limit := averageEdgeLength(boundary) / shrink

		edge, candidate := longestDiggableEdge(boundary, interior, limit)
		if edge < 0 {
			break
		}

		p := interior[candidate]
		boundary = append(boundary[:edge+1], append([]models.Point{p}, boundary[edge+1:]...)...)
		interior = append(interior[:candidate], interior[candidate+1:]...)
	}

	return boundary
}

func averageEdgeLength(boundary []models.Point) float64 {
	total := 0.0
	for i := range boundary {
		j := (i + 1) % len(boundary)
		total += boundary[i].DistanceTo(boundary[j])
	}
	return total / float64(len(boundary))
}

// longestDiggableEdge finds the longest edge above limit that has an interior
// point strictly closer to both endpoints than the edge is long. Returns
// (-1, -1) when no edge qualifies.
func longestDiggableEdge(boundary, interior []models.Point, limit float64) (int, int) {
	bestEdge := -1
	bestPoint := -1
	bestLen := limit

	for i := range boundary {
		j := (i + 1) % len(boundary)
		a, b := boundary[i], boundary[j]
		edgeLen := a.DistanceTo(b)
		if edgeLen <= bestLen {
			continue
		}

		candidate := -1
		candidateDetour := math.Inf(1)
		for k, p := range interior {
			da := p.DistanceTo(a)
			db := p.DistanceTo(b)
			if da >= edgeLen || db >= edgeLen {
				continue
			}
			if da+db < candidateDetour {
				candidateDetour = da + db
				candidate = k
			}
		}

		if candidate >= 0 {
			bestEdge = i
			bestPoint = candidate
			bestLen = edgeLen
		}
	}

	return bestEdge, bestPoint
}

// smoothedOutwardNormals estimates a unit outward normal per boundary vertex:
// adjacent edge vectors are averaged into a tangent, normals are smoothed
// circularly over a 5-vertex window and re-normalized. The boundary must be
// counter-clockwise; the outward normal is the 90-degree rotated tangent.
func smoothedOutwardNormals(boundary []models.Point) []models.Point {
	n := len(boundary)
	if models.SignedPolygonArea(boundary) < 0 {
		reversed := make([]models.Point, n)
		for i, v := range boundary {
			reversed[n-1-i] = v
		}
		copy(boundary, reversed)
	}

	raw := make([]models.Point, n)
	for i := range boundary {
		prev := boundary[(i-1+n)%n]
		next := boundary[(i+1)%n]

		fwd := normalize(next.Sub(boundary[i]))
		bwd := normalize(boundary[i].Sub(prev))
		tangent := normalize(fwd.Add(bwd))

		raw[i] = models.Point{X: tangent.Y, Y: -tangent.X}
	}

	smoothed := make([]models.Point, n)
	for i := range raw {
		sum := models.Point{}
		for w := -2; w <= 2; w++ {
			sum = sum.Add(raw[(i+w+n)%n])
		}
		smoothed[i] = normalize(sum)
	}

	return smoothed
}

func normalize(p models.Point) models.Point {
	norm := p.Norm()
	if norm == 0 {
		return p
	}
	return p.Scale(1 / norm)
}
