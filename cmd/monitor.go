// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/spf13/cobra"
)

var (
	monitorInterval time.Duration
	monitorTypes    []string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display mission protocol traffic in human-readable format",
	Long: `Continuously poll the vehicle's latest messages and print each one as it
changes, with receive time, message type and decoded fields.

By default the mission protocol messages, MISSION_CURRENT and HEARTBEAT are
watched. Use --type to watch other messages.

Exit codes:
  0 - Interrupted
  2 - Connection error`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 200*time.Millisecond, "Poll interval")
	monitorCmd.Flags().StringSliceVar(&monitorTypes, "type", nil, "Message types to watch (repeatable)")
}

// watchedTypes returns the message types monitor polls.
func watchedTypes() []string {
	if len(monitorTypes) > 0 {
		return monitorTypes
	}
	types := append([]string{}, mavlink.MissionMessageTypes...)
	return append(types, mavlink.MsgMissionCurrent, mavlink.MsgHeartbeat)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := OpenConnection(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	types := watchedTypes()
	fmt.Printf("Surveyplan - Message Monitor\n")
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Watching: %v\n", types)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	seen := make(map[string]uint64)
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		for _, t := range types {
			m, err := conn.Poll(ctx, t)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("Poll failed", "type", t, "error", err.Error())
				fmt.Printf("[ERROR] %s: %v\n", t, err)
				continue
			}
			if !changed(seen, m) {
				continue
			}
			fmt.Print(mavlink.FormatMessage(*m))
		}

		select {
		case <-ctx.Done():
			fmt.Println("\nStopped")
			return nil
		case <-ticker.C:
		}
	}
}

// changed reports whether m is newer than the last message of its type
// and records it. Messages without a counter are compared by receive time.
func changed(seen map[string]uint64, m *mavlink.Message) bool {
	if m == nil {
		return false
	}
	mark := m.Counter
	if mark == 0 {
		mark = uint64(m.Received.UnixNano())
	}
	if mark == 0 || seen[m.Type] == mark {
		return false
	}
	seen[m.Type] = mark
	return true
}
