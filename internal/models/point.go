package models

import "math"

// Point is a 2D coordinate in pixel units. X is the column, Y the row.
type Point struct {
	X float64
	Y float64
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Point3 is a 3D coordinate, used by exported point clouds with a depth axis.
type Point3 struct {
	X float64
	Y float64
	Z float64
}

// PolygonArea returns the absolute area enclosed by the closed polygon pts
// via the shoelace formula. Fewer than 3 vertices enclose nothing.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}

	sum := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}

	return math.Abs(sum) / 2
}

// SignedPolygonArea is positive for counter-clockwise vertex order.
func SignedPolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}

	sum := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}

	return sum / 2
}
