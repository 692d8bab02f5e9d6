// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package survey turns a camera, an altitude and a boundary polygon into a
// flyable lawnmower mission.
package survey

// Coverage is the ground coverage of one image at a given altitude.
type Coverage struct {
	GSD             float64 // cm/px, width axis
	GSDWidth        float64 // cm/px
	GSDHeight       float64 // cm/px
	FootprintWidth  float64 // m
	FootprintHeight float64 // m
	LineSpacing     float64 // m between adjacent survey lines
	TriggerDistance float64 // m between camera triggers
}

// Surveyable reports whether the coverage allows a grid to be generated.
func (c Coverage) Surveyable() bool {
	return c.LineSpacing > 0
}

// GSDInches returns the width-axis GSD in inches per pixel.
func (c Coverage) GSDInches() float64 {
	return c.GSD / 2.54
}

// ComputeCoverage derives GSD, footprint, line spacing and trigger distance.
// Overlaps are percentages in [0, 100). Degenerate input returns a zero
// Coverage.
func ComputeCoverage(altitude float64, cam *Camera, sideOverlap, frontOverlap float64) Coverage {
	if altitude <= 0 || cam == nil || cam.FocalLength <= 0 {
		return Coverage{}
	}
	if sideOverlap < 0 || sideOverlap >= 100 || frontOverlap < 0 || frontOverlap >= 100 {
		return Coverage{}
	}
	if cam.ImageWidth <= 0 {
		return Coverage{}
	}

	gsdW := altitude * cam.SensorWidth / (cam.FocalLength * float64(cam.ImageWidth)) * 100
	fw := gsdW / 100 * float64(cam.ImageWidth)

	// A camera without a height axis still yields line spacing.
	var gsdH, fh float64
	if cam.ImageHeight > 0 {
		gsdH = altitude * cam.SensorHeight / (cam.FocalLength * float64(cam.ImageHeight)) * 100
		fh = gsdH / 100 * float64(cam.ImageHeight)
	}

	return Coverage{
		GSD:             gsdW,
		GSDWidth:        gsdW,
		GSDHeight:       gsdH,
		FootprintWidth:  fw,
		FootprintHeight: fh,
		LineSpacing:     fw * (1 - sideOverlap/100),
		TriggerDistance: fh * (1 - frontOverlap/100),
	}
}
