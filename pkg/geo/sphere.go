// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package geo

import (
	"math"

	golanggeo "github.com/kellydunn/golang-geo"
)

// WGS84 equatorial radius, used for polygon area.
const earthRadiusMeters = 6378137

// Bearing returns the initial great-circle bearing in degrees from
// (lat1, lon1) to (lat2, lon2), in the range (-180, 180].
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	return golanggeo.NewPoint(lat1, lon1).BearingTo(golanggeo.NewPoint(lat2, lon2))
}

// Destination returns the point reached by travelling meters along the
// great circle leaving (lat, lon) with the given initial bearing.
func Destination(lat, lon, bearing, meters float64) (float64, float64) {
	p := golanggeo.NewPoint(lat, lon).PointAtDistanceAndBearing(meters/1000, bearing)
	return p.Lat(), p.Lng()
}

// Distance returns the great-circle distance in metres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return golanggeo.NewPoint(lat1, lon1).GreatCircleDistance(golanggeo.NewPoint(lat2, lon2)) * 1000
}

// RingArea returns the approximate geodesic area in square metres enclosed
// by the ring pts (lon, lat degrees). The ring is implicitly closed.
//
// See "Some Algorithms for Polygons on a Sphere", Chamberlain & Duquette,
// JPL Publication 07-03.
func RingArea(pts []Point2) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}

	rad := func(d float64) float64 { return d * math.Pi / 180 }

	var total float64
	for i := 0; i < n; i++ {
		lower, middle, upper := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		total += (rad(upper[0]) - rad(lower[0])) * math.Sin(rad(middle[1]))
	}
	return math.Abs(total * earthRadiusMeters * earthRadiusMeters / 2)
}
