// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package survey

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/openaerial/surveyplan/pkg/geo"
	"github.com/openaerial/surveyplan/pkg/mission"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// squareBoundary returns a square of roughly side metres with its south-west
// corner at (lat, lon).
func squareBoundary(lat, lon, side float64) mission.Boundary {
	d := side / geo.MetersPerDegreeLatitude
	return mission.Boundary{
		{Lat: lat, Lon: lon},
		{Lat: lat, Lon: lon + d},
		{Lat: lat + d, Lon: lon + d},
		{Lat: lat + d, Lon: lon},
	}
}

// onOrInside reports whether p lies inside b or on one of its edges.
func onOrInside(b mission.Boundary, p mission.Position) bool {
	if b.Contains(p) {
		return true
	}
	pts := b.Points()
	pt := geo.Point2{p.Lon, p.Lat}
	for i := range pts {
		if geo.PointSegmentDistance(pt, pts[i], pts[(i+1)%len(pts)]) < 1e-9 {
			return true
		}
	}
	return false
}

func TestComputeCoverage(t *testing.T) {
	cam := &Camera{FocalLength: 35, SensorWidth: 23.5, SensorHeight: 15.6, ImageWidth: 6000, ImageHeight: 4000}
	c := ComputeCoverage(50, cam, 70, 75)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"gsd", c.GSD, 0.559524},
		{"gsd height", c.GSDHeight, 0.557143},
		{"footprint width", c.FootprintWidth, 33.5714},
		{"footprint height", c.FootprintHeight, 22.2857},
		{"line spacing", c.LineSpacing, 10.0714},
		{"trigger distance", c.TriggerDistance, 5.5714},
	}
	for _, tt := range checks {
		if !approx(tt.got, tt.want, 1e-4) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !c.Surveyable() {
		t.Error("coverage should be surveyable")
	}
	if !approx(c.GSDInches(), 0.559524/2.54, 1e-5) {
		t.Errorf("GSDInches() = %v", c.GSDInches())
	}
}

func TestComputeCoverageWidthOnlyCamera(t *testing.T) {
	cam := &Camera{FocalLength: 35, SensorWidth: 23.5, ImageWidth: 6000}
	c := ComputeCoverage(50, cam, 70, 75)
	if !approx(c.LineSpacing, 10.0714, 1e-4) {
		t.Errorf("LineSpacing = %v", c.LineSpacing)
	}
	if c.TriggerDistance != 0 {
		t.Errorf("TriggerDistance = %v, want 0 without a height axis", c.TriggerDistance)
	}
}

func TestComputeCoverageDegenerate(t *testing.T) {
	cam := &Camera{FocalLength: 35, SensorWidth: 23.5, SensorHeight: 15.6, ImageWidth: 6000, ImageHeight: 4000}
	tests := []struct {
		name        string
		alt         float64
		cam         *Camera
		side, front float64
	}{
		{"zero altitude", 0, cam, 70, 75},
		{"negative altitude", -10, cam, 70, 75},
		{"nil camera", 50, nil, 70, 75},
		{"side overlap 100", 50, cam, 100, 75},
		{"front overlap 100", 50, cam, 70, 100},
		{"negative overlap", 50, cam, -1, 75},
		{"zero focal length", 50, &Camera{SensorWidth: 23.5, ImageWidth: 6000}, 70, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ComputeCoverage(tt.alt, tt.cam, tt.side, tt.front)
			if c != (Coverage{}) {
				t.Errorf("expected zero coverage, got %+v", c)
			}
			if c.Surveyable() {
				t.Error("zero coverage should not be surveyable")
			}
		})
	}
}

func TestGenerateGridSquare(t *testing.T) {
	b := squareBoundary(0, 0, 100)
	items := GenerateGrid(b, 10, 0, 0, 0, false)

	if len(items)%2 != 0 {
		t.Fatalf("odd number of points: %d", len(items))
	}
	lines := len(items) / 2
	if lines < 9 || lines > 11 {
		t.Fatalf("got %d lines, want 10±1", lines)
	}

	for i, it := range items {
		if it.Seq != uint16(i+1) {
			t.Errorf("item %d: seq %d", i, it.Seq)
		}
		if it.Command != mission.CmdWaypoint {
			t.Errorf("item %d: command %v", i, it.Command)
		}
		if !onOrInside(b, it.Position()) {
			t.Errorf("item %d at %v is outside the boundary", i, it.Position())
		}
	}

	for l := 0; l < lines; l++ {
		start, end := items[2*l], items[2*l+1]
		eastward := end.Lon > start.Lon
		if want := l%2 == 0; eastward != want {
			t.Errorf("line %d: eastward=%v, want %v", l, eastward, want)
		}
	}
}

func TestGenerateGridRotatedEndpointsInside(t *testing.T) {
	b := mission.Boundary{
		{Lat: 28.6120, Lon: 77.2290},
		{Lat: 28.6122, Lon: 77.2310},
		{Lat: 28.6140, Lon: 77.2305},
		{Lat: 28.6138, Lon: 77.2288},
		{Lat: 28.6130, Lon: 77.2284},
	}
	for _, angle := range []float64{0, 30, 45, 90, 135, 211, 359} {
		items := GenerateGrid(b, 15, angle, 0, 0, false)
		if len(items) == 0 {
			t.Fatalf("angle %v: no items", angle)
		}
		for _, it := range items {
			if !onOrInside(b, it.Position()) {
				t.Errorf("angle %v: %v is outside the boundary", angle, it.Position())
			}
		}
	}
}

func TestGenerateGridExtensions(t *testing.T) {
	b := squareBoundary(28.6, 77.2, 200)
	const leadIn, overshoot = 20.0, 25.0

	for _, angle := range []float64{0, 37, 90} {
		plain := GridLines(b, 20, angle, 0, 0)
		ext := GridLines(b, 20, angle, leadIn, overshoot)
		if len(plain) != len(ext) || len(plain) == 0 {
			t.Fatalf("angle %v: line count %d vs %d", angle, len(plain), len(ext))
		}

		for i := range plain {
			p, e := plain[i], ext[i]
			bearing := geo.Bearing(p.Start.Lat, p.Start.Lon, p.End.Lat, p.End.Lon)

			d := geo.Distance(p.Start.Lat, p.Start.Lon, e.Start.Lat, e.Start.Lon)
			if !approx(d, leadIn, leadIn*0.01) {
				t.Errorf("angle %v line %d: lead-in %v m", angle, i, d)
			}
			back := geo.Bearing(p.Start.Lat, p.Start.Lon, e.Start.Lat, e.Start.Lon)
			if math.Abs(geo.HeadingDifference(back, bearing-180)) > 1 {
				t.Errorf("angle %v line %d: lead-in bearing %v, line bearing %v", angle, i, back, bearing)
			}

			d = geo.Distance(p.End.Lat, p.End.Lon, e.End.Lat, e.End.Lon)
			if !approx(d, overshoot, overshoot*0.01) {
				t.Errorf("angle %v line %d: overshoot %v m", angle, i, d)
			}
			fwd := geo.Bearing(p.End.Lat, p.End.Lon, e.End.Lat, e.End.Lon)
			if math.Abs(geo.HeadingDifference(fwd, bearing)) > 1 {
				t.Errorf("angle %v line %d: overshoot bearing %v, line bearing %v", angle, i, fwd, bearing)
			}
		}
	}
}

func TestGenerateGridIdempotent(t *testing.T) {
	b := squareBoundary(10, 10, 150)
	a := GenerateGrid(b, 12, 33, 20, 25, true)
	c := GenerateGrid(b, 12, 33, 20, 25, true)
	if !reflect.DeepEqual(a, c) {
		t.Error("GenerateGrid is not deterministic")
	}
}

func TestGenerateGridAngleNormalised(t *testing.T) {
	b := squareBoundary(10, 10, 150)
	if !reflect.DeepEqual(GenerateGrid(b, 12, 0, 5, 5, false), GenerateGrid(b, 12, 360, 5, 5, false)) {
		t.Error("360 should behave like 0")
	}
	if !reflect.DeepEqual(GenerateGrid(b, 12, 270, 5, 5, false), GenerateGrid(b, 12, -90, 5, 5, false)) {
		t.Error("-90 should behave like 270")
	}
}

func TestGenerateGridCrosshatch(t *testing.T) {
	b := squareBoundary(0, 0, 100)
	primary := GenerateGrid(b, 10, 0, 0, 0, false)
	secondary := GenerateGrid(b, 10, 90, 0, 0, false)
	both := GenerateGrid(b, 10, 0, 0, 0, true)

	if len(both) != len(primary)+len(secondary) {
		t.Fatalf("crosshatch produced %d points, want %d", len(both), len(primary)+len(secondary))
	}
	for i := range primary {
		if both[i].Lat != primary[i].Lat || both[i].Lon != primary[i].Lon {
			t.Fatalf("primary pass differs at %d", i)
		}
	}
	for i := range secondary {
		got := both[len(primary)+i]
		if got.Lat != secondary[i].Lat || got.Lon != secondary[i].Lon {
			t.Fatalf("secondary pass differs at %d", i)
		}
	}
	if both[len(both)-1].Seq != uint16(len(both)) {
		t.Error("crosshatch points should be numbered continuously")
	}
}

func TestGenerateGridInvalid(t *testing.T) {
	b := squareBoundary(0, 0, 100)
	tests := []struct {
		name     string
		boundary mission.Boundary
		spacing  float64
	}{
		{"two vertices", b[:2], 10},
		{"nil boundary", nil, 10},
		{"zero spacing", b, 0},
		{"negative spacing", b, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := GenerateGrid(tt.boundary, tt.spacing, 0, 0, 0, false)
			if items == nil || len(items) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", items)
			}
		})
	}
}

func TestGenerateGridTooDense(t *testing.T) {
	// 100 km at 5 m spacing is 20000 lines per pass.
	b := squareBoundary(0, 0, 100000)
	tests := []struct {
		name       string
		spacing    float64
		crosshatch bool
		wantEmpty  bool
	}{
		{"too dense", 5, false, true},
		{"too dense crosshatch", 5, true, true},
		{"within limit", 50, false, false},
		{"within limit crosshatch", 50, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := GenerateGrid(b, tt.spacing, 0, 0, 0, tt.crosshatch)
			if items == nil {
				t.Fatal("GenerateGrid returned nil")
			}
			if (len(items) == 0) != tt.wantEmpty {
				t.Errorf("got %d items, wantEmpty %v", len(items), tt.wantEmpty)
			}
			if len(items) > math.MaxUint16 {
				t.Errorf("%d items do not fit 16-bit sequence numbers", len(items))
			}
		})
	}
	if lines := GridLines(b, 5, 0, 0, 0); lines != nil {
		t.Errorf("GridLines returned %d lines past the limit", len(lines))
	}
}

func TestGenerateGridConcaveUsesOuterSpan(t *testing.T) {
	d := 100.0 / geo.MetersPerDegreeLatitude
	// U shape opening north; lines through the arms span the gap.
	u := mission.Boundary{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 3 * d}, {Lat: 2 * d, Lon: 3 * d}, {Lat: 2 * d, Lon: 2 * d},
		{Lat: d, Lon: 2 * d}, {Lat: d, Lon: d}, {Lat: 2 * d, Lon: d}, {Lat: 2 * d, Lon: 0},
	}
	lines := GridLines(u, 20, 0, 0, 0)
	for i, l := range lines {
		west, east := math.Min(l.Start.Lon, l.End.Lon), math.Max(l.Start.Lon, l.End.Lon)
		if !approx(west, 0, 1e-9) || !approx(east, 3*d, 1e-9) {
			t.Errorf("line %d spans %v..%v, want the full width", i, west, east)
		}
	}
}

func TestAssembleMission(t *testing.T) {
	home := mission.Position{Lat: 28.6129, Lon: 77.2295}
	grid := []mission.Item{
		mission.NewWaypoint(1, 1, 0),
		mission.NewWaypoint(2, 2, 0),
		mission.NewWaypoint(3, 3, 0),
	}
	opts := DefaultOptions()
	opts.TriggerDistance = 7.5

	items := AssembleMission(grid, home, opts)

	want := []struct {
		cmd      mission.Command
		lat, alt float64
		param1   float64
	}{
		{mission.CmdTakeoff, home.Lat, 20, 0},
		{mission.CmdChangeSpeed, 0, 0, 1},
		{mission.CmdWaypoint, 1, 120, 0},
		{mission.CmdSetCameraTriggerDistance, 0, 0, 7.5},
		{mission.CmdWaypoint, 2, 120, 0},
		{mission.CmdWaypoint, 3, 120, 0},
		{mission.CmdSetCameraTriggerDistance, 0, 0, 0},
		{mission.CmdWaypoint, 3, 30, 0},
		{mission.CmdReturnToLaunch, home.Lat, 0, 0},
	}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d: %v", len(items), len(want), items)
	}
	for i, w := range want {
		it := items[i]
		if it.Seq != uint16(i+1) {
			t.Errorf("item %d: seq %d", i, it.Seq)
		}
		if it.Command != w.cmd || it.Lat != w.lat || it.Alt != w.alt || it.Param1 != w.param1 {
			t.Errorf("item %d = %v, want %v lat=%v alt=%v p1=%v", i, it, w.cmd, w.lat, w.alt, w.param1)
		}
	}
	if items[1].Param2 != 5 || items[1].Param3 != -1 {
		t.Errorf("speed item = %+v", items[1])
	}
	if err := mission.Validate(items, 1); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAssembleMissionOptionalItems(t *testing.T) {
	home := mission.Position{Lat: 1, Lon: 1}
	grid := []mission.Item{mission.NewWaypoint(2, 2, 0), mission.NewWaypoint(3, 3, 0)}

	opts := DefaultOptions()
	opts.AddTakeoff = false
	opts.UseSpeed = false
	opts.AddReturnWaypoint = false
	opts.UseRTL = false

	items := AssembleMission(grid, home, opts)
	wantCmds := []mission.Command{
		mission.CmdWaypoint,
		mission.CmdSetCameraTriggerDistance,
		mission.CmdWaypoint,
		mission.CmdSetCameraTriggerDistance,
	}
	if len(items) != len(wantCmds) {
		t.Fatalf("got %d items, want %d", len(items), len(wantCmds))
	}
	for i, c := range wantCmds {
		if items[i].Command != c || items[i].Seq != uint16(i+1) {
			t.Errorf("item %d = %v", i, items[i])
		}
	}
}

func TestAssembleMissionEmptyGrid(t *testing.T) {
	home := mission.Position{Lat: 1, Lon: 2}
	items := AssembleMission(nil, home, DefaultOptions())

	wantCmds := []mission.Command{mission.CmdTakeoff, mission.CmdChangeSpeed, mission.CmdWaypoint, mission.CmdReturnToLaunch}
	if len(items) != len(wantCmds) {
		t.Fatalf("got %d items: %v", len(items), items)
	}
	for i, c := range wantCmds {
		if items[i].Command != c {
			t.Errorf("item %d = %v, want %v", i, items[i].Command, c)
		}
	}
	if items[2].Lat != home.Lat || items[2].Lon != home.Lon || items[2].Alt != 30 {
		t.Errorf("return waypoint should be over home at RTL altitude, got %v", items[2])
	}
}

func TestAssembleMissionStartingWaypoint(t *testing.T) {
	grid := []mission.Item{
		mission.NewWaypoint(1, 0, 0),
		mission.NewWaypoint(2, 0, 0),
		mission.NewWaypoint(3, 0, 0),
		mission.NewWaypoint(4, 0, 0),
	}
	opts := Options{SurveyAlt: 50}

	tests := []struct {
		offset int
		want   []float64
	}{
		{0, []float64{1, 2, 3, 4}},
		{2, []float64{3, 4, 1, 2}},
		{3, []float64{4, 1, 2, 3}},
		{99, []float64{4, 1, 2, 3}},
		{-3, []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		opts.StartingWaypoint = tt.offset
		items := AssembleMission(grid, mission.Position{}, opts)
		var got []float64
		for _, it := range items {
			if it.Command == mission.CmdWaypoint {
				got = append(got, it.Lat)
			}
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("offset %d: got %v, want %v", tt.offset, got, tt.want)
		}
	}
	if grid[0].Lat != 1 {
		t.Error("AssembleMission modified its input")
	}
}

func TestComputeStats(t *testing.T) {
	b := squareBoundary(0, 0, 100)
	d := 100.0 / geo.MetersPerDegreeLatitude
	items := []mission.Item{
		{Command: mission.CmdTakeoff, Alt: 20},
		mission.NewWaypoint(0, 0, 50),
		{Command: mission.CmdSetCameraTriggerDistance, Param1: 10},
		mission.NewWaypoint(d, 0, 50),
	}
	cov := Coverage{TriggerDistance: 10}

	s := ComputeStats(b, items, cov, 5, 20)

	if !approx(s.Area, 10000, 200) {
		t.Errorf("Area = %v, want ~10000", s.Area)
	}
	if !approx(s.Acres, s.Area/4046.86, 1e-9) {
		t.Errorf("Acres = %v", s.Acres)
	}
	if !approx(s.Distance, 100, 1) {
		t.Errorf("Distance = %v, want ~100", s.Distance)
	}
	if s.Waypoints != 2 || s.TotalItems != 4 {
		t.Errorf("Waypoints/TotalItems = %d/%d", s.Waypoints, s.TotalItems)
	}
	if s.FlightTime < 19*time.Second || s.FlightTime > 21*time.Second {
		t.Errorf("FlightTime = %v, want ~20s", s.FlightTime)
	}
	if s.ImageCount != 9 && s.ImageCount != 10 {
		t.Errorf("ImageCount = %d", s.ImageCount)
	}
	if s.Batteries != 1 {
		t.Errorf("Batteries = %d, want 1", s.Batteries)
	}
}

func TestCatalog(t *testing.T) {
	c := BuiltinCatalog()
	if len(c.Cameras) == 0 {
		t.Fatal("built-in catalog is empty")
	}
	def := c.Default()
	if def == nil || def.ImageWidth != 6000 {
		t.Fatalf("Default() = %+v", def)
	}
	if def.Name != DefaultCameraName {
		t.Errorf("Default() = %q, want exact match %q", def.Name, DefaultCameraName)
	}
	if _, ok := c.Find("phantom 4"); !ok {
		t.Error("Find should match case-insensitive substrings")
	}
	if _, ok := c.Find("Hasselblad"); ok {
		t.Error("Find matched a missing camera")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cams.yaml")
	data := `cameras:
  - name: Test Cam
    focal_length: 10
    sensor_width: 10
    sensor_height: 8
    image_width: 1000
    image_height: 800
  - name: sony rx1r ii
    focal_length: 36
    sensor_width: 35.9
    sensor_height: 24
    image_width: 7952
    image_height: 5304
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	if cam, ok := c.Find("Test Cam"); !ok || cam.FocalLength != 10 {
		t.Errorf("user camera missing: %+v", cam)
	}
	if cam, _ := c.Find("Sony RX1R II"); cam.FocalLength != 36 {
		t.Errorf("user camera should replace built-in entry, got %+v", cam)
	}
	if len(c.Cameras) != len(BuiltinCatalog().Cameras)+1 {
		t.Errorf("catalog has %d cameras", len(c.Cameras))
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("cameras:\n  - name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(bad); err == nil {
		t.Error("expected validation error")
	}
}
