// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/openaerial/surveyplan/pkg/survey"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	planCamera    cameraFlags
	planBoundary  string
	planOutput    string
	planHome      string
	planSpacing   float64
	planTrigger   float64
	planBattery   float64
	planParams    = survey.DefaultParameters()
	planOptions   = survey.DefaultOptions()
	planNoTakeoff bool
	planNoSpeed   bool
	planNoReturn  bool
	planNoRTL     bool
	planShowItems bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a survey mission over a boundary polygon",
	Long: `Generate a lawnmower survey over the polygon in a GeoJSON file and wrap it
with takeoff, speed, camera trigger and return items.

Line spacing and trigger distance come from the camera, altitude and overlaps
unless given explicitly. The home position defaults to the boundary centroid.

The mission file format follows the output extension: .json, .yaml or .cbor.

Examples:
  surveyplan plan --boundary field.geojson --output field.json
  surveyplan plan --boundary field.geojson --home 47.3977,8.5456 --alt 80 --angle 45 --crosshatch`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	f := planCmd.Flags()
	planCamera.register(planCmd)

	f.StringVar(&planBoundary, "boundary", "", "GeoJSON file with the survey polygon (required)")
	f.StringVarP(&planOutput, "output", "o", "", "Mission file to write")
	f.StringVar(&planHome, "home", "", "Home position as lat,lon (default boundary centroid)")

	f.Float64Var(&planOptions.SurveyAlt, "alt", planOptions.SurveyAlt, "Survey altitude above home (m)")
	f.Float64Var(&planParams.SideOverlap, "side", planParams.SideOverlap, "Side overlap (%)")
	f.Float64Var(&planParams.FrontOverlap, "front", planParams.FrontOverlap, "Front overlap (%)")
	f.Float64Var(&planSpacing, "spacing", 0, "Line spacing override (m)")
	f.Float64Var(&planTrigger, "trigger", 0, "Camera trigger distance override (m)")
	f.Float64Var(&planParams.Angle, "angle", planParams.Angle, "Line direction (degrees, 0 = north)")
	f.Float64Var(&planParams.LeadIn, "lead-in", planParams.LeadIn, "Distance flown before each line (m)")
	f.Float64Var(&planParams.Overshoot, "overshoot", planParams.Overshoot, "Distance flown after each line (m)")
	f.BoolVar(&planParams.Crosshatch, "crosshatch", false, "Add a second pass at angle+90")

	f.Float64Var(&planOptions.TakeoffAlt, "takeoff-alt", planOptions.TakeoffAlt, "Takeoff altitude (m)")
	f.Float64Var(&planOptions.RTLAlt, "rtl-alt", planOptions.RTLAlt, "Altitude of the closing waypoint (m)")
	f.Float64Var(&planOptions.Speed, "speed", planOptions.Speed, "Survey ground speed (m/s)")
	f.IntVar(&planOptions.StartingWaypoint, "start", 0, "Begin the survey at this grid point (0-based)")
	f.BoolVar(&planNoTakeoff, "no-takeoff", false, "Omit the takeoff item")
	f.BoolVar(&planNoSpeed, "no-speed", false, "Omit the speed change item")
	f.BoolVar(&planNoReturn, "no-return", false, "Omit the closing waypoint")
	f.BoolVar(&planNoRTL, "no-rtl", false, "Omit return to launch")

	f.Float64Var(&planBattery, "battery", 20, "Usable flight time per battery (minutes)")
	f.BoolVar(&planShowItems, "show-items", false, "Print every mission item")

	planCmd.MarkFlagRequired("boundary")
}

// parsePosition parses "lat,lon".
func parsePosition(s string) (mission.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return mission.Position{}, errors.Errorf("invalid position %q (use lat,lon)", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return mission.Position{}, errors.Wrapf(err, "invalid latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return mission.Position{}, errors.Wrapf(err, "invalid longitude in %q", s)
	}
	p := mission.Position{Lat: lat, Lon: lon}
	return p, p.Validate()
}

func runPlan(cmd *cobra.Command, args []string) error {
	boundary, err := mission.LoadBoundaryGeoJSON(planBoundary)
	if err != nil {
		return err
	}

	home := boundary.Centroid()
	if planHome != "" {
		if home, err = parsePosition(planHome); err != nil {
			return err
		}
	}

	cam, err := planCamera.camera()
	if err != nil {
		return err
	}
	cov := survey.ComputeCoverage(planOptions.SurveyAlt, cam, planParams.SideOverlap, planParams.FrontOverlap)

	params := planParams
	params.LineSpacing = cov.LineSpacing
	params.TriggerDistance = cov.TriggerDistance
	if planSpacing > 0 {
		params.LineSpacing = planSpacing
	}
	if planTrigger > 0 {
		params.TriggerDistance = planTrigger
	}
	if params.LineSpacing <= 0 {
		return errors.Errorf("no line spacing: check altitude, overlaps and camera %q, or pass --spacing", cam.Name)
	}

	grid := survey.Grid(boundary, params)
	if len(grid) == 0 {
		return errors.New("the boundary produced no survey lines")
	}

	opts := planOptions
	opts.TriggerDistance = params.TriggerDistance
	opts.AddTakeoff = !planNoTakeoff
	opts.UseSpeed = !planNoSpeed
	opts.AddReturnWaypoint = !planNoReturn
	opts.UseRTL = !planNoRTL
	items := survey.AssembleMission(grid, home, opts)

	stats := survey.ComputeStats(boundary, items, cov, opts.Speed, planBattery)
	logger.Info("Mission planned",
		"camera", cam.Name,
		"grid_points", len(grid),
		"items", len(items),
		"area_m2", stats.Area)

	fmt.Printf("Camera:           %s\n", cam.Name)
	fmt.Printf("Home:             %s\n", home)
	fmt.Print(formatCoverage(cov))
	if planSpacing > 0 || planTrigger > 0 {
		fmt.Printf("Used spacing:     %.1f m, trigger %.1f m\n", params.LineSpacing, params.TriggerDistance)
	}
	fmt.Print(formatStats(stats))

	if planShowItems {
		fmt.Println()
		for _, it := range items {
			fmt.Println(it)
		}
	}

	if planOutput == "" {
		return nil
	}
	f := &mission.File{
		Version:  mission.FileVersion,
		Created:  time.Now().UTC(),
		Home:     home,
		Boundary: boundary,
		Items:    items,
	}
	if err := f.Save(planOutput); err != nil {
		return err
	}
	fmt.Printf("\nMission written to %s\n", planOutput)
	return nil
}

func formatStats(s survey.Stats) string {
	out := fmt.Sprintf("Area:             %.0f m² (%.2f acres)\n", s.Area, s.Acres)
	out += fmt.Sprintf("Distance:         %.2f km\n", s.Distance/1000)
	out += fmt.Sprintf("Flight time:      %s\n", s.FlightTime.Round(time.Second))
	out += fmt.Sprintf("Images:           %d\n", s.ImageCount)
	out += fmt.Sprintf("Batteries:        %d\n", s.Batteries)
	out += fmt.Sprintf("Waypoints:        %d of %d items\n", s.Waypoints, s.TotalItems)
	return out
}
