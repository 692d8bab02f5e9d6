// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	pingTimeout  time.Duration
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the link by waiting for a vehicle heartbeat",
	Long: `Wait for a fresh HEARTBEAT from the vehicle until timeout.

A heartbeat already held by the bridge when the command starts does not
count; the vehicle must send a new one.

Exit codes:
  0 - Heartbeat received before timeout
  1 - Timeout reached without a heartbeat
  2 - Connection error

Useful for checking the bridge URL and credentials before a transfer.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 10*time.Second, "Time to wait for a heartbeat")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 250*time.Millisecond, "Poll interval")
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	conn, err := OpenConnection(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Surveyplan - Ping\n")
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Timeout: %s\n", pingTimeout)
	fmt.Printf("Waiting for HEARTBEAT...\n\n")

	start := time.Now()
	m, err := waitHeartbeat(ctx, conn, pingInterval)
	if err != nil {
		conn.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Printf("✗ No heartbeat within %s\n", pingTimeout)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Print(mavlink.FormatMessage(*m))
	fmt.Printf("\n✓ Heartbeat after %s\n", time.Since(start).Round(time.Millisecond))
	logger.Info("Ping succeeded", "elapsed", time.Since(start).String())
	return nil
}

// waitHeartbeat polls until a HEARTBEAT newer than the first one seen
// arrives. Transport errors are retried until ctx ends.
func waitHeartbeat(ctx context.Context, conn Connection, interval time.Duration) (*mavlink.Message, error) {
	var baseline uint64
	if m, err := conn.Poll(ctx, mavlink.MsgHeartbeat); err == nil && m != nil {
		baseline = m.Counter
	}

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		m, err := conn.Poll(ctx, mavlink.MsgHeartbeat)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		if m != nil && (m.Counter == 0 || m.Counter > baseline) {
			return m, nil
		}
	}
}
