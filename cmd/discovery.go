// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openaerial/surveyplan/pkg/bridge"
	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var (
	discoveryTimeout time.Duration
	discoveryScan   bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find serial ports with a vehicle attached",
	Long: `List the serial ports on this machine. With --scan, open each port at the
configured baud rate and wait for a HEARTBEAT to find the vehicle.

Examples:
  surveyplan discovery
  surveyplan discovery --scan --baud 57600

Exit codes:
  0 - Discovery successful (at least one port, or one vehicle with --scan)
  1 - Discovery failed (no ports, or no vehicle answered)
  2 - Port enumeration error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().DurationVar(&discoveryTimeout, "timeout", 3*time.Second, "Time to wait for a heartbeat on each port")
	discoveryCmd.Flags().BoolVar(&discoveryScan, "scan", false, "Scan each port for a vehicle heartbeat")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Port enumeration error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Surveyplan - Discovery\n")
	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		os.Exit(1)
	}

	if !discoveryScan {
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
		fmt.Printf("\n%d port(s) found\n", len(ports))
		return nil
	}

	fmt.Printf("Scanning %d port(s) at %d baud, %s each...\n\n", len(ports), cfg.Bridge.BaudRate, discoveryTimeout)
	found := 0
	for _, p := range ports {
		if scanPort(p) {
			found++
		}
	}

	if found == 0 {
		fmt.Printf("\n✗ No vehicle answered\n")
		os.Exit(1)
	}
	fmt.Printf("\n✓ Found %d vehicle(s)\n", found)
	return nil
}

func scanPort(name string) bool {
	conn, err := bridge.OpenSerial(name, cfg.Bridge.BaudRate)
	if err != nil {
		fmt.Printf("  %-20s %s\n", name, errorStyle.Render(err.Error()))
		return false
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	m, err := waitHeartbeat(ctx, conn, 100*time.Millisecond)
	if err != nil {
		fmt.Printf("  %-20s %s\n", name, headerStyle.Render("no heartbeat"))
		logger.Debug("No heartbeat on port", "port", name, "error", err.Error())
		return false
	}

	autopilot, _ := mavlink.GetFieldEnum(m.Fields, "autopilot")
	fmt.Printf("  %-20s %s\n", name, statsValueStyle.Render("vehicle "+autopilot))
	logger.Info("Vehicle found", "port", name, "autopilot", autopilot)
	return true
}
