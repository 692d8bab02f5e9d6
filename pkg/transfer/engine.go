// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transfer moves missions between the ground station and a vehicle
// over a lossy, polled channel. The channel only offers fire-and-forget
// sends and a view of the latest message of each type, so both directions
// are driven by retry loops with bounded budgets.
package transfer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openaerial/surveyplan/internal/log"
	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/pkg/errors"
)

var (
	// ErrRetryBudget is returned when the vehicle stops answering.
	ErrRetryBudget = errors.New("retry budget exhausted")
	// ErrBusy is returned when a transfer is already running on the engine.
	ErrBusy = errors.New("transfer already in progress")
	// ErrMissionTooLarge is returned when a mission cannot be numbered
	// with 16-bit sequence numbers.
	ErrMissionTooLarge = errors.New("mission too large")
)

// Channel is the link to the vehicle. Send does not confirm delivery. Poll
// returns the most recent message of msgType, or nil if there is none;
// older messages of the same type are lost.
type Channel interface {
	Send(ctx context.Context, m mavlink.Message) error
	Poll(ctx context.Context, msgType string) (*mavlink.Message, error)
}

// Engine runs uploads and downloads over one channel, one at a time.
type Engine struct {
	ch   Channel
	cfg  Config
	log  *log.Logger
	busy atomic.Bool
}

// NewEngine creates an engine. Zero fields of cfg take their defaults; a
// nil logger is allowed.
func NewEngine(ch Channel, cfg Config, logger *log.Logger) *Engine {
	return &Engine{
		ch:  ch,
		cfg: cfg.withDefaults(),
		log: logger,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Busy reports whether a transfer is running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

func (e *Engine) acquire() bool {
	return e.busy.CompareAndSwap(false, true)
}

func (e *Engine) release() {
	e.busy.Store(false)
}

// run holds the per-session helpers.
type run struct {
	e        *Engine
	sess     *Session
	obs      Observer
	log      *log.Logger
	baseline map[string]uint64
}

func (e *Engine) newRun(dir Direction, obs Observer) *run {
	if obs == nil {
		obs = nopObserver{}
	}
	sess := newSession(dir)
	if so, ok := obs.(SessionObserver); ok {
		so.SessionStarted(sess.ID, dir)
	}
	return &run{
		e:        e,
		sess:     sess,
		obs:      obs,
		log:      e.log.With("session", sess.ID.String(), "direction", dir.String()),
		baseline: make(map[string]uint64),
	}
}

func (r *run) progress(current int, msg string) {
	r.obs.Progress(current, r.sess.Total, msg)
}

// transition moves the session to next and reports it. Terminal states
// are reported by done and fail.
func (r *run) transition(next State) {
	prev := r.sess.State
	r.sess.transition(next)
	r.log.Debug("State change", "from", prev.String(), "to", next.String())
	if !next.Terminal() {
		r.progress(r.sess.Seq, r.stateMessage(next))
	}
}

func (r *run) stateMessage(s State) string {
	switch s {
	case StateCountSent:
		return "Mission count sent"
	case StateAwaitingRequests:
		return "Waiting for the vehicle to request items"
	case StateRequestCount:
		return "Requesting mission count"
	case StateAwaitingCount:
		return "Waiting for mission count"
	case StateRequestItem:
		return fmt.Sprintf("Downloading item %d of %d", r.sess.Seq+1, r.sess.Total)
	case StateAwaitingItem:
		return fmt.Sprintf("Waiting for item %d of %d", r.sess.Seq+1, r.sess.Total)
	case StateAckSent:
		return "Acknowledging mission"
	}
	return s.String()
}

// snapshot records the counters of messages already sitting in the
// mailbox so they are not mistaken for replies to this session.
func (r *run) snapshot(ctx context.Context, types ...string) {
	for _, t := range types {
		m, err := r.e.ch.Poll(ctx, t)
		if err != nil || m == nil {
			continue
		}
		r.baseline[t] = m.Counter
	}
}

// fresh reports whether m arrived after the session started. Channels
// that report no counter are trusted.
func (r *run) fresh(m *mavlink.Message) bool {
	if m == nil {
		return false
	}
	if m.Counter == 0 {
		return true
	}
	return m.Counter > r.baseline[m.Type]
}

// send transmits m. Transport errors are logged and left to the retry
// loop; only cancellation is returned.
func (r *run) send(ctx context.Context, m mavlink.Message) error {
	err := r.e.ch.Send(ctx, m)
	if err == nil {
		r.log.Debug("Sent", "type", m.Type)
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "send %s", m.Type)
	}
	r.log.Warn("Send failed", "type", m.Type, "error", err.Error())
	return nil
}

// resend is send for a repeated message.
func (r *run) resend(ctx context.Context, m mavlink.Message) error {
	r.sess.Resends++
	r.log.Info("Resending", "type", m.Type, "seq", r.sess.Seq)
	return r.send(ctx, m)
}

// poll returns the latest fresh msgType message, or nil. Transport errors
// count as no message.
func (r *run) poll(ctx context.Context, msgType string) (*mavlink.Message, error) {
	m, err := r.e.ch.Poll(ctx, msgType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "poll %s", msgType)
		}
		r.log.Debug("Poll failed", "type", msgType, "error", err.Error())
		return nil, nil
	}
	if !r.fresh(m) {
		if m != nil {
			r.log.Debug("Ignoring stale message", "type", msgType, "counter", m.Counter)
		}
		return nil, nil
	}
	return m, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fail ends the session and reports the failure.
func (r *run) fail(err error) error {
	r.sess.fail(err)
	r.log.Error("Transfer failed",
		"status", r.sess.Status.String(),
		"seq", r.sess.Seq,
		"error", err.Error())
	r.progress(r.sess.Seq, r.sess.Direction.String()+" failed: "+err.Error())
	return err
}

// done ends the session successfully.
func (r *run) done(msg string) {
	r.transition(StateDone)
	r.log.Info("Transfer complete",
		"total", r.sess.Total,
		"resends", r.sess.Resends,
		"elapsed", time.Since(r.sess.Started).String())
	r.progress(r.sess.Total, msg)
}
