// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transfer

import (
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
)

// Config holds the engine's timings and retry budgets.
type Config struct {
	// PollInterval paces download polls.
	PollInterval time.Duration
	// UploadPollInterval paces polls for MISSION_REQUEST during upload.
	UploadPollInterval time.Duration
	// ResendInterval is how long to wait for a reply before resending.
	ResendInterval time.Duration
	// ClearSettle is the pause after MISSION_CLEAR_ALL.
	ClearSettle time.Duration
	// FinalSettle is the pause after the last item before reading the
	// vehicle's MISSION_ACK.
	FinalSettle time.Duration

	// UploadRetryBudget is the number of consecutive polls without
	// progress after which an upload fails.
	UploadRetryBudget int
	// CountAttempts bounds the polls for MISSION_COUNT.
	CountAttempts int
	// ItemAttempts bounds the polls for each MISSION_ITEM_INT.
	ItemAttempts int

	// Target is the vehicle component that owns the mission.
	Target mavlink.Target
}

// DefaultConfig returns the timings used against a real bridge.
func DefaultConfig() Config {
	return Config{
		PollInterval:       100 * time.Millisecond,
		UploadPollInterval: 50 * time.Millisecond,
		ResendInterval:     time.Second,
		ClearSettle:        time.Second,
		FinalSettle:        500 * time.Millisecond,
		UploadRetryBudget:  200,
		CountAttempts:      40,
		ItemAttempts:       100,
		Target:             mavlink.DefaultTarget,
	}
}

// withDefaults fills zero fields from DefaultConfig. Settle times may be
// zero on purpose and are left alone.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.UploadPollInterval <= 0 {
		c.UploadPollInterval = d.UploadPollInterval
	}
	if c.ResendInterval <= 0 {
		c.ResendInterval = d.ResendInterval
	}
	if c.UploadRetryBudget <= 0 {
		c.UploadRetryBudget = d.UploadRetryBudget
	}
	if c.CountAttempts <= 0 {
		c.CountAttempts = d.CountAttempts
	}
	if c.ItemAttempts <= 0 {
		c.ItemAttempts = d.ItemAttempts
	}
	if c.Target == (mavlink.Target{}) {
		c.Target = d.Target
	}
	return c
}
