// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package survey

import (
	"github.com/openaerial/surveyplan/pkg/geo"
	"github.com/openaerial/surveyplan/pkg/mission"
)

// maxScanlines bounds a single pass. Two crosshatched passes at this limit
// still number well below the 16-bit sequence space.
const maxScanlines = 1 << 13

// Parameters control grid generation.
type Parameters struct {
	LineSpacing     float64 // m
	Angle           float64 // degrees, compass sense
	LeadIn          float64 // m before each line
	Overshoot       float64 // m after each line
	Crosshatch      bool
	FrontOverlap    float64 // %
	SideOverlap     float64 // %
	TriggerDistance float64 // m
}

// DefaultParameters returns the planner defaults. Spacing and trigger
// distance come from ComputeCoverage.
func DefaultParameters() Parameters {
	return Parameters{
		Angle:        90,
		LeadIn:       20,
		Overshoot:    25,
		FrontOverlap: 75,
		SideOverlap:  70,
	}
}

// Line is one survey pass between two real-world endpoints.
type Line struct {
	Start, End mission.Position
}

// Grid generates the boustrophedon path for params over boundary.
func Grid(boundary mission.Boundary, params Parameters) []mission.Item {
	return GenerateGrid(boundary, params.LineSpacing, params.Angle, params.LeadIn, params.Overshoot, params.Crosshatch)
}

// GenerateGrid returns the lawnmower path covering boundary as WAYPOINT
// items with 1-based sequence numbers and zero altitude. Lines are spaced
// lineSpacing metres apart and flown along angle degrees (compass sense),
// each extended by leadIn before and overshoot after. With crosshatch a
// second pass at angle+90 is appended. Invalid input returns no items, as
// does a spacing so small that a pass would need more than maxScanlines
// lines.
//
// Concave polygons are covered between the outermost crossings of each
// line only; interior gaps are flown over.
func GenerateGrid(boundary mission.Boundary, lineSpacing, angle, leadIn, overshoot float64, crosshatch bool) []mission.Item {
	if !boundary.Valid() || lineSpacing <= 0 {
		return []mission.Item{}
	}

	if tooDense(boundary, lineSpacing, angle) || (crosshatch && tooDense(boundary, lineSpacing, angle+90)) {
		return []mission.Item{}
	}

	lines := GridLines(boundary, lineSpacing, angle, leadIn, overshoot)
	if crosshatch {
		lines = append(lines, GridLines(boundary, lineSpacing, angle+90, leadIn, overshoot)...)
	}

	items := make([]mission.Item, 0, 2*len(lines))
	for _, l := range lines {
		items = append(items,
			mission.NewWaypoint(l.Start.Lat, l.Start.Lon, 0),
			mission.NewWaypoint(l.End.Lat, l.End.Lon, 0),
		)
	}
	return mission.Renumber(items, 1)
}

// GridLines computes a single pass of survey lines in flight order.
func GridLines(boundary mission.Boundary, lineSpacing, angle, leadIn, overshoot float64) []Line {
	if !boundary.Valid() || lineSpacing <= 0 {
		return nil
	}

	if tooDense(boundary, lineSpacing, angle) {
		return nil
	}

	angle = geo.NormalizeAngle(angle)
	pts := boundary.Points()
	pivot := geo.Centroid(pts)
	rotated := geo.RotatePolygon(pts, pivot, -angle)
	ext := geo.Extent2DFromPoints(rotated)
	step := lineSpacing / geo.MetersPerDegreeLatitude

	var lines []Line
	for k := 0; ; k++ {
		y := ext.P0[1] + float64(k)*step
		if y > ext.P1[1] {
			break
		}

		xs := geo.HorizontalIntersections(rotated, y)
		if len(xs) < 2 {
			continue
		}
		a, b := geo.Point2{xs[0], y}, geo.Point2{xs[len(xs)-1], y}
		if len(lines)%2 == 1 {
			a, b = b, a
		}

		lines = append(lines, extendLine(
			geo.Rotate(a, pivot, angle),
			geo.Rotate(b, pivot, angle),
			leadIn, overshoot,
		))
	}
	return lines
}

// tooDense reports whether a pass at angle would need more than
// maxScanlines lines.
func tooDense(boundary mission.Boundary, lineSpacing, angle float64) bool {
	pts := boundary.Points()
	rotated := geo.RotatePolygon(pts, geo.Centroid(pts), -geo.NormalizeAngle(angle))
	ext := geo.Extent2DFromPoints(rotated)
	return ext.Height()*geo.MetersPerDegreeLatitude/lineSpacing >= maxScanlines
}

func extendLine(a, b geo.Point2, leadIn, overshoot float64) Line {
	startLat, startLon := a.Y(), a.X()
	endLat, endLon := b.Y(), b.X()
	bearing := geo.Bearing(startLat, startLon, endLat, endLon)

	if leadIn > 0 {
		startLat, startLon = geo.Destination(startLat, startLon, bearing-180, leadIn)
	}
	if overshoot > 0 {
		endLat, endLon = geo.Destination(endLat, endLon, bearing, overshoot)
	}
	return Line{
		Start: mission.Position{Lat: startLat, Lon: startLon},
		End:   mission.Position{Lat: endLat, Lon: endLon},
	}
}
