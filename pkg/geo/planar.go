// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package geo provides the geometry used by the survey planner.
//
// Planar helpers treat latitude/longitude degrees as a flat XY plane
// (X = longitude, Y = latitude). That is an approximation, but a good one
// for survey areas of a few kilometres. Great-circle helpers live in
// sphere.go.
package geo

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// MetersPerDegreeLatitude converts metres to degrees of latitude.
const MetersPerDegreeLatitude = 111139.0

// Point2 is a planar point in degree space.
// Important: 0 (x) is longitude, 1 (y) is latitude.
type Point2 [2]float64

func (p Point2) X() float64 { return p[0] }
func (p Point2) Y() float64 { return p[1] }

// Extent2D is an axis-aligned bounding box.
type Extent2D struct {
	P0, P1 Point2
}

// EmptyExtent2D returns an Extent2D representing an empty bounding box.
func EmptyExtent2D() Extent2D {
	return Extent2D{
		P0: Point2{math.Inf(1), math.Inf(1)},
		P1: Point2{math.Inf(-1), math.Inf(-1)},
	}
}

// Extent2DFromPoints returns the bounding box of pts.
func Extent2DFromPoints(pts []Point2) Extent2D {
	e := EmptyExtent2D()
	for _, p := range pts {
		for d := 0; d < 2; d++ {
			e.P0[d] = min(e.P0[d], p[d])
			e.P1[d] = max(e.P1[d], p[d])
		}
	}
	return e
}

// Height is the latitude span of the extent.
func (e Extent2D) Height() float64 { return e.P1[1] - e.P0[1] }

// Clamp returns x limited to [low, high].
func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

// NormalizeAngle maps any angle in degrees to [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// HeadingDifference returns the signed difference a-b between two headings,
// in (-180, 180].
func HeadingDifference(a, b float64) float64 {
	d := NormalizeAngle(a - b)
	if d > 180 {
		d -= 360
	}
	return d
}

// Centroid returns the area centroid of the polygon described by pts (the
// closing edge from the last vertex back to the first is implied). For
// degenerate polygons with no area the vertex mean is returned instead.
func Centroid(pts []Point2) Point2 {
	if len(pts) == 0 {
		return Point2{}
	}

	// Work relative to the first vertex to keep the cross products small.
	origin := pts[0]
	var area2, cx, cy float64
	for i := range pts {
		p0 := sub(pts[i], origin)
		p1 := sub(pts[(i+1)%len(pts)], origin)
		cross := p0[0]*p1[1] - p1[0]*p0[1]
		area2 += cross
		cx += (p0[0] + p1[0]) * cross
		cy += (p0[1] + p1[1]) * cross
	}

	if math.Abs(area2) < 1e-18 {
		var mean Point2
		for _, p := range pts {
			mean[0] += p[0]
			mean[1] += p[1]
		}
		return Point2{mean[0] / float64(len(pts)), mean[1] / float64(len(pts))}
	}

	return Point2{origin[0] + cx/(3*area2), origin[1] + cy/(3*area2)}
}

// Rotate rotates p by deg degrees about pivot. Positive angles rotate
// clockwise, matching compass headings.
func Rotate(p Point2, pivot Point2, deg float64) Point2 {
	r := deg * math.Pi / 180
	s, c := math.Sincos(r)
	d := sub(p, pivot)
	return Point2{
		pivot[0] + d[0]*c + d[1]*s,
		pivot[1] - d[0]*s + d[1]*c,
	}
}

// RotatePolygon rotates every vertex of pts about pivot, returning a new
// slice; pts itself is left untouched.
func RotatePolygon(pts []Point2, pivot Point2, deg float64) []Point2 {
	out := make([]Point2, len(pts))
	for i, p := range pts {
		out[i] = Rotate(p, pivot, deg)
	}
	return out
}

// HorizontalIntersections returns the X coordinates where the horizontal
// line at y crosses the edges of the polygon pts, sorted ascending with
// coincident values merged. Horizontal edges are ignored; their end
// points are reported by the adjoining edges.
func HorizontalIntersections(pts []Point2, y float64) []float64 {
	var xs []float64
	for i := range pts {
		p0, p1 := pts[i], pts[(i+1)%len(pts)]
		if p0[1] == p1[1] {
			continue
		}
		lo, hi := min(p0[1], p1[1]), max(p0[1], p1[1])
		if y < lo || y > hi {
			continue
		}
		t := (y - p0[1]) / (p1[1] - p0[1])
		xs = append(xs, p0[0]+t*(p1[0]-p0[0]))
	}

	sort.Float64s(xs)

	const eps = 1e-12
	merged := xs[:0]
	for _, x := range xs {
		if len(merged) > 0 && math.Abs(x-merged[len(merged)-1]) < eps {
			continue
		}
		merged = append(merged, x)
	}
	return merged
}

// PointInPolygon checks whether p is inside the polygon pts; the edge from
// the last vertex back to the first is included.
func PointInPolygon(p Point2, pts []Point2) bool {
	inside := false
	for i := 0; i < len(pts); i++ {
		p0, p1 := pts[i], pts[(i+1)%len(pts)]
		if (p0[1] <= p[1] && p[1] < p1[1]) || (p1[1] <= p[1] && p[1] < p0[1]) {
			x := p0[0] + (p[1]-p0[1])*(p1[0]-p0[0])/(p1[1]-p0[1])
			if x > p[0] {
				inside = !inside
			}
		}
	}
	return inside
}

// PointSegmentDistance returns the planar distance from p to the segment
// (v, w).
func PointSegmentDistance(p, v, w Point2) float64 {
	l2 := sqr(w[0]-v[0]) + sqr(w[1]-v[1])
	if l2 == 0 {
		return math.Hypot(p[0]-v[0], p[1]-v[1])
	}
	t := ((p[0]-v[0])*(w[0]-v[0]) + (p[1]-v[1])*(w[1]-v[1])) / l2
	t = Clamp(t, 0, 1)
	proj := Point2{v[0] + t*(w[0]-v[0]), v[1] + t*(w[1]-v[1])}
	return math.Hypot(p[0]-proj[0], p[1]-proj[1])
}

func sub(a, b Point2) Point2 { return Point2{a[0] - b[0], a[1] - b[1]} }

func sqr(v float64) float64 { return v * v }
