// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package survey

import (
	"math"
	"time"

	"github.com/openaerial/surveyplan/pkg/geo"
	"github.com/openaerial/surveyplan/pkg/mission"
)

const squareMetersPerAcre = 4046.86

// Stats summarises a planned mission.
type Stats struct {
	Area       float64 // m²
	Acres      float64
	Distance   float64 // m flown between waypoints
	FlightTime time.Duration
	ImageCount int
	Batteries  int
	Waypoints  int
	TotalItems int
	Coverage   Coverage
}

// ComputeStats estimates area, distance, flight time, image count and
// battery usage for items flown at speed m/s with batteries lasting
// batteryMinutes.
func ComputeStats(boundary mission.Boundary, items []mission.Item, cov Coverage, speed, batteryMinutes float64) Stats {
	s := Stats{Coverage: cov, TotalItems: len(items)}

	if boundary.Valid() {
		s.Area = geo.RingArea(boundary.Points())
		s.Acres = s.Area / squareMetersPerAcre
	}

	var prev *mission.Item
	for i := range items {
		it := &items[i]
		if it.Command != mission.CmdWaypoint {
			continue
		}
		s.Waypoints++
		if prev != nil {
			s.Distance += geo.Distance(prev.Lat, prev.Lon, it.Lat, it.Lon)
		}
		prev = it
	}

	if speed > 0 {
		s.FlightTime = time.Duration(s.Distance / speed * float64(time.Second))
	}
	if cov.TriggerDistance > 0 {
		s.ImageCount = int(math.Floor(s.Distance / cov.TriggerDistance))
	}
	if batteryMinutes > 0 {
		s.Batteries = int(math.Ceil(s.FlightTime.Minutes() / batteryMinutes))
	}
	return s
}
