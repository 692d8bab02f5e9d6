// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/spf13/cobra"
)

var (
	uploadMission string
	uploadTUI     bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a mission file to the vehicle",
	Long: `Replace the vehicle's mission with the items in a mission file.

The vehicle's old mission is cleared first. The home position from the file is
sent as item 0, followed by the planned items.

Exit codes:
  0 - Mission uploaded
  1 - Upload failed or timed out
  2 - Connection error

Examples:
  surveyplan upload --mission field.json
  surveyplan upload --mission field.json --transport sim --tui`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVarP(&uploadMission, "mission", "m", "", "Mission file to upload (required)")
	uploadCmd.Flags().BoolVar(&uploadTUI, "tui", false, "Show progress in a terminal UI")
	uploadCmd.MarkFlagRequired("mission")
}

func runUpload(cmd *cobra.Command, args []string) error {
	f, err := mission.Load(uploadMission)
	if err != nil {
		return err
	}
	if err := mission.Validate(f.Items, 1); err != nil {
		return err
	}

	conn, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	res, err := runTransfer("Mission Upload", conn, uploadTUI, func(e *transfer.Engine) transferFunc {
		return func(ctx context.Context, obs transfer.Observer) (*transfer.Result, error) {
			return e.Upload(ctx, f.Items, f.Home, obs)
		}
	})
	printResult(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		conn.Close()
		os.Exit(1)
	}

	fmt.Printf("\nUploaded %d items from %s\n", len(f.Items), uploadMission)
	return nil
}
