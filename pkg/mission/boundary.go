// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mission

import (
	"encoding/json"
	"os"

	"github.com/openaerial/surveyplan/pkg/geo"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// Boundary is a survey polygon. The closing edge from the last vertex back
// to the first is implied.
type Boundary []Position

// Valid reports whether the boundary has enough vertices to enclose an area.
func (b Boundary) Valid() bool {
	return len(b) >= 3
}

// Points returns the vertices in planar degree space (x = lon, y = lat).
func (b Boundary) Points() []geo.Point2 {
	pts := make([]geo.Point2, len(b))
	for i, p := range b {
		pts[i] = geo.Point2{p.Lon, p.Lat}
	}
	return pts
}

// Centroid returns the area centroid of the boundary.
func (b Boundary) Centroid() Position {
	c := geo.Centroid(b.Points())
	return Position{Lat: c[1], Lon: c[0]}
}

// Contains reports whether p lies inside the boundary.
func (b Boundary) Contains(p Position) bool {
	return geo.PointInPolygon(geo.Point2{p.Lon, p.Lat}, b.Points())
}

// BoundaryFromRing converts a GeoJSON linear ring ([lon, lat] pairs) to a
// Boundary, dropping the repeated closing vertex.
func BoundaryFromRing(ring [][]float64) (Boundary, error) {
	b := make(Boundary, 0, len(ring))
	for i, c := range ring {
		if len(c) < 2 {
			return nil, errors.Errorf("vertex %d has %d coordinates", i, len(c))
		}
		p := Position{Lat: c[1], Lon: c[0]}
		if err := p.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "vertex %d", i)
		}
		b = append(b, p)
	}
	if len(b) > 1 && b[0] == b[len(b)-1] {
		b = b[:len(b)-1]
	}
	if !b.Valid() {
		return nil, errors.Errorf("boundary has %d vertices, need at least 3", len(b))
	}
	return b, nil
}

// Ring returns the boundary as a closed GeoJSON ring.
func (b Boundary) Ring() [][]float64 {
	ring := make([][]float64, 0, len(b)+1)
	for _, p := range b {
		ring = append(ring, []float64{p.Lon, p.Lat})
	}
	if len(b) > 0 {
		ring = append(ring, []float64{b[0].Lon, b[0].Lat})
	}
	return ring
}

// ParseBoundaryGeoJSON reads the outer ring of the first polygon found in a
// GeoJSON Geometry, Feature or FeatureCollection.
func ParseBoundaryGeoJSON(data []byte) (Boundary, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(err, "parse geojson")
	}

	var geoms []*geojson.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(err, "parse feature collection")
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(err, "parse feature")
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(err, "parse geometry")
		}
		geoms = append(geoms, g)
	}

	for _, g := range geoms {
		if g == nil {
			continue
		}
		switch {
		case g.IsPolygon() && len(g.Polygon) > 0:
			return BoundaryFromRing(g.Polygon[0])
		case g.IsMultiPolygon() && len(g.MultiPolygon) > 0 && len(g.MultiPolygon[0]) > 0:
			return BoundaryFromRing(g.MultiPolygon[0][0])
		}
	}
	return nil, errors.New("no polygon found in geojson")
}

// LoadBoundaryGeoJSON reads a boundary from a GeoJSON file.
func LoadBoundaryGeoJSON(path string) (Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read boundary")
	}
	b, err := ParseBoundaryGeoJSON(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", path)
	}
	return b, nil
}

// MarshalGeoJSON renders the boundary as a GeoJSON Feature with a Polygon
// geometry.
func (b Boundary) MarshalGeoJSON() ([]byte, error) {
	f := geojson.NewPolygonFeature([][][]float64{b.Ring()})
	return f.MarshalJSON()
}
