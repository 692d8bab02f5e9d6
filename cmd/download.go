// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/spf13/cobra"
)

var (
	downloadOutput    string
	downloadTUI       bool
	downloadShowItems bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the vehicle's mission",
	Long: `Read the mission stored on the vehicle and print or save it.

Item 0 on the vehicle is its home position; it is written as the file's home
and the remaining items are renumbered from 1. A vehicle without a mission
yields an empty mission file.

Exit codes:
  0 - Mission downloaded (possibly empty)
  1 - Download failed or timed out
  2 - Connection error

Examples:
  surveyplan download
  surveyplan download --output onboard.yaml`,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Mission file to write")
	downloadCmd.Flags().BoolVar(&downloadTUI, "tui", false, "Show progress in a terminal UI")
	downloadCmd.Flags().BoolVar(&downloadShowItems, "show-items", false, "Print every mission item")
}

func runDownload(cmd *cobra.Command, args []string) error {
	conn, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	res, err := runTransfer("Mission Download", conn, downloadTUI, func(e *transfer.Engine) transferFunc {
		return e.Download
	})
	printResult(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Download failed: %v\n", err)
		conn.Close()
		os.Exit(1)
	}

	home, items := res.Mission()
	if len(res.Items) == 0 {
		fmt.Println("\nVehicle has no mission")
	} else {
		fmt.Printf("\nHome:  %s\n", home)
		fmt.Printf("Items: %d\n", len(items))
	}
	if downloadShowItems {
		for _, it := range items {
			fmt.Println(it)
		}
	}

	if downloadOutput == "" {
		return nil
	}
	f := &mission.File{
		Version: mission.FileVersion,
		Created: time.Now().UTC(),
		Home:    home,
		Items:   items,
	}
	if err := f.Save(downloadOutput); err != nil {
		return err
	}
	fmt.Printf("Mission written to %s\n", downloadOutput)
	return nil
}
