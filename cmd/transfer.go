// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openaerial/surveyplan/internal/notify"
	"github.com/openaerial/surveyplan/pkg/transfer"
)

// printer writes one line per progress report.
type printer struct {
	w    io.Writer
	last string
}

func (p *printer) Progress(current, total int, msg string) {
	if msg == p.last {
		return
	}
	p.last = msg
	fmt.Fprintf(p.w, "[%3d/%3d] %s\n", current, total, msg)
}

// openNotifier connects to the MQTT broker when one is configured. A
// broker that cannot be reached only costs the progress feed.
func openNotifier() *notify.Publisher {
	if cfg.MQTT.Broker == "" {
		return nil
	}
	pub, err := notify.Connect(cfg.MQTT, logger)
	if err != nil {
		logger.Warn("MQTT unavailable", "error", err.Error())
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return nil
	}
	return pub
}

// runTransfer runs fn on a fresh engine with progress on the terminal (or
// the TUI) and, when configured, on MQTT. Interrupts cancel the transfer.
func runTransfer(title string, conn Connection, useTUI bool, fn func(*transfer.Engine) transferFunc) (*transfer.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := transfer.NewEngine(conn, cfg.TransferConfig(), logger)
	run := fn(engine)

	var extra transfer.Observer
	if pub := openNotifier(); pub != nil {
		defer pub.Close()
		extra = pub
		inner := run
		run = func(ctx context.Context, obs transfer.Observer) (*transfer.Result, error) {
			res, err := inner(ctx, obs)
			pub.Result(res, err)
			return res, err
		}
	}

	if useTUI {
		return runTransferTUI(ctx, title, conn.String(), run, extra)
	}

	fmt.Printf("Surveyplan - %s\n", title)
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Press Ctrl+C to cancel\n\n")
	return run(ctx, transfer.Observers{&printer{w: os.Stdout}, extra})
}

// printResult summarizes a finished transfer.
func printResult(res *transfer.Result) {
	if res == nil {
		return
	}
	fmt.Printf("\nStatus:  %s\n", res.Status)
	fmt.Printf("Items:   %d\n", res.Total)
	fmt.Printf("Resends: %d\n", res.Resends)
	fmt.Printf("Elapsed: %s\n", res.Elapsed.Round(time.Millisecond))
}
