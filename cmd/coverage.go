// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/openaerial/surveyplan/pkg/survey"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	coverageCamera   cameraFlags
	coverageAltitude float64
	coverageSide     float64
	coverageFront    float64
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Compute ground coverage for a camera and altitude",
	Long: `Compute ground sample distance, image footprint, survey line spacing and
camera trigger distance for a camera flown at a given altitude.

Examples:
  surveyplan coverage --alt 120
  surveyplan coverage --camera "Phantom 4" --alt 80 --side 75 --front 80`,
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageCamera.register(coverageCmd)
	coverageCmd.Flags().Float64Var(&coverageAltitude, "alt", 120, "Survey altitude above home (m)")
	coverageCmd.Flags().Float64Var(&coverageSide, "side", 70, "Side overlap (%)")
	coverageCmd.Flags().Float64Var(&coverageFront, "front", 75, "Front overlap (%)")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cam, err := coverageCamera.camera()
	if err != nil {
		return err
	}

	cov := survey.ComputeCoverage(coverageAltitude, cam, coverageSide, coverageFront)
	if !cov.Surveyable() {
		return errors.Errorf("no coverage: check altitude (%.1f m), overlaps and camera %q", coverageAltitude, cam.Name)
	}

	fmt.Printf("Camera:           %s\n", cam.Name)
	fmt.Printf("Altitude:         %.1f m\n", coverageAltitude)
	fmt.Print(formatCoverage(cov))
	return nil
}

func formatCoverage(cov survey.Coverage) string {
	s := fmt.Sprintf("GSD:              %.2f cm/px (%.2f in/px)\n", cov.GSD, cov.GSDInches())
	if cov.GSDHeight > 0 {
		s += fmt.Sprintf("GSD (height):     %.2f cm/px\n", cov.GSDHeight)
	}
	s += fmt.Sprintf("Footprint:        %.1f x %.1f m\n", cov.FootprintWidth, cov.FootprintHeight)
	s += fmt.Sprintf("Line spacing:     %.1f m\n", cov.LineSpacing)
	s += fmt.Sprintf("Trigger distance: %.1f m\n", cov.TriggerDistance)
	return s
}
