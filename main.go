// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Surveyplan - Aerial Survey Planner
//
// A CLI tool for planning lawnmower survey missions over a boundary polygon
// and transferring them to a flight controller through a MAVLink bridge.

package main

import (
	"os"

	"github.com/openaerial/surveyplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
