// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package survey

import (
	"github.com/openaerial/surveyplan/pkg/geo"
	"github.com/openaerial/surveyplan/pkg/mission"
)

// Speed type for DO_CHANGE_SPEED param1.
const speedTypeGround = 1

// Options controls which items wrap the survey grid.
type Options struct {
	TakeoffAlt      float64 // m
	SurveyAlt       float64 // m
	RTLAlt          float64 // m, closing waypoint altitude
	Speed           float64 // m/s
	TriggerDistance float64 // m

	AddTakeoff        bool
	UseSpeed          bool
	AddReturnWaypoint bool
	UseRTL            bool

	// StartingWaypoint rotates the grid so the mission begins at this
	// 0-based grid point. Out of range values are clamped.
	StartingWaypoint int
}

// DefaultOptions returns the planner defaults with every optional item
// enabled.
func DefaultOptions() Options {
	return Options{
		TakeoffAlt:        20,
		SurveyAlt:         120,
		RTLAlt:            30,
		Speed:             5,
		AddTakeoff:        true,
		UseSpeed:          true,
		AddReturnWaypoint: true,
		UseRTL:            true,
	}
}

// AssembleMission wraps grid with takeoff, speed, camera trigger and return
// items. The result is numbered densely from 1; home occupies 0 on the wire.
func AssembleMission(grid []mission.Item, home mission.Position, opts Options) []mission.Item {
	pts := rotateGrid(grid, opts.StartingWaypoint)
	items := make([]mission.Item, 0, len(pts)+6)

	if opts.AddTakeoff {
		items = append(items, mission.Item{
			Command: mission.CmdTakeoff,
			Lat:     home.Lat,
			Lon:     home.Lon,
			Alt:     opts.TakeoffAlt,
		})
	}

	if opts.UseSpeed {
		items = append(items, mission.Item{
			Command: mission.CmdChangeSpeed,
			Param1:  speedTypeGround,
			Param2:  opts.Speed,
			Param3:  -1,
		})
	}

	if len(pts) > 0 {
		items = append(items, mission.NewWaypoint(pts[0].Lat, pts[0].Lon, opts.SurveyAlt))
		items = append(items, mission.Item{
			Command: mission.CmdSetCameraTriggerDistance,
			Param1:  opts.TriggerDistance,
		})
		for _, p := range pts[1:] {
			items = append(items, mission.NewWaypoint(p.Lat, p.Lon, opts.SurveyAlt))
		}
		items = append(items, mission.Item{Command: mission.CmdSetCameraTriggerDistance})
	}

	if opts.AddReturnWaypoint {
		last := home
		if len(pts) > 0 {
			last = pts[len(pts)-1].Position()
		}
		items = append(items, mission.NewWaypoint(last.Lat, last.Lon, opts.RTLAlt))
	}

	if opts.UseRTL {
		items = append(items, mission.Item{
			Command: mission.CmdReturnToLaunch,
			Lat:     home.Lat,
			Lon:     home.Lon,
		})
	}

	return mission.Renumber(items, 1)
}

func rotateGrid(grid []mission.Item, offset int) []mission.Item {
	if len(grid) == 0 {
		return nil
	}
	offset = geo.Clamp(offset, 0, len(grid)-1)
	out := make([]mission.Item, 0, len(grid))
	out = append(out, grid[offset:]...)
	return append(out, grid[:offset]...)
}
