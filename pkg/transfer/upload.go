// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transfer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/pkg/errors"
)

// homeItem is the synthetic item sent at seq 0.
func homeItem(home mission.Position) mission.Item {
	it := mission.NewWaypoint(home.Lat, home.Lon, 0)
	it.Current = true
	it.Autocontinue = true
	return it
}

// wireItems prepends home to items and numbers them from 0.
func wireItems(items []mission.Item, home mission.Position) []mission.Item {
	out := make([]mission.Item, 0, len(items)+1)
	out = append(out, homeItem(home))
	for _, it := range items {
		it.Current = false
		it.Autocontinue = true
		out = append(out, it)
	}
	return mission.Renumber(out, 0)
}

// Upload replaces the vehicle's mission with home followed by items. The
// vehicle pulls items one at a time by sequence number; items are served
// in whatever order it asks for them.
//
// The returned Result is nil only when err is ErrBusy.
func (e *Engine) Upload(ctx context.Context, items []mission.Item, home mission.Position, obs Observer) (*Result, error) {
	if !e.acquire() {
		return nil, ErrBusy
	}
	defer e.release()

	r := e.newRun(DirectionUpload, obs)
	wire := wireItems(items, home)
	r.sess.Total = len(wire)
	r.log.Info("Starting upload", "items", len(wire))

	err := r.upload(ctx, wire)
	if err != nil {
		r.fail(err)
	}
	return r.sess.result(nil), err
}

func (r *run) upload(ctx context.Context, wire []mission.Item) error {
	cfg := r.e.cfg
	total := len(wire)
	if total > math.MaxUint16 {
		return errors.Wrapf(ErrMissionTooLarge, "%d items on the wire", total)
	}

	r.snapshot(ctx, mavlink.MsgMissionRequest, mavlink.MsgMissionAck)

	r.progress(0, "Clearing old mission from vehicle")
	if err := r.send(ctx, mavlink.NewMissionClearAll(cfg.Target)); err != nil {
		return err
	}
	if err := sleep(ctx, cfg.ClearSettle); err != nil {
		return errors.Wrap(err, "clear mission")
	}

	count := mavlink.NewMissionCount(cfg.Target, uint16(total))
	r.progress(0, "Sending mission count")
	if err := r.send(ctx, count); err != nil {
		return err
	}
	r.transition(StateCountSent)
	countSent := time.Now()

	r.transition(StateAwaitingRequests)
	last := -1
	var lastSent time.Time

	for {
		if r.sess.Retries >= cfg.UploadRetryBudget {
			return errors.Wrapf(ErrRetryBudget, "upload stalled after %d polls at seq %d", r.sess.Retries, last)
		}
		if err := sleep(ctx, cfg.UploadPollInterval); err != nil {
			return errors.Wrap(err, "upload")
		}

		m, err := r.poll(ctx, mavlink.MsgMissionRequest)
		if err != nil {
			return err
		}
		if m == nil {
			r.sess.Retries++
			if last < 0 && time.Since(countSent) > cfg.ResendInterval {
				if err := r.resend(ctx, count); err != nil {
					return err
				}
				countSent = time.Now()
			}
			continue
		}

		seq, ok := m.Seq()
		if !ok || int(seq) >= total {
			r.sess.Retries++
			r.log.Warn("Sequence mismatch", "requested", int(seq), "total", total)
			continue
		}
		s := int(seq)
		if s == last && time.Since(lastSent) <= cfg.ResendInterval {
			r.sess.Retries++
			continue
		}

		// Only a new request is progress; serving the same seq again after
		// ResendInterval still counts against the budget.
		if s == last {
			r.sess.Retries++
			r.sess.Resends++
			r.log.Info("Resending item", "seq", s)
		} else {
			r.sess.Retries = 0
		}
		r.sess.Seq = s
		r.progress(s, fmt.Sprintf("Uploading item %d of %d", s+1, total))
		if err := r.send(ctx, mavlink.NewMissionItemInt(cfg.Target, wire[s])); err != nil {
			return err
		}
		last, lastSent = s, time.Now()
		r.sess.LastActivity = lastSent

		if s == total-1 {
			return r.finishUpload(ctx)
		}
	}
}

// finishUpload reads the vehicle's verdict after the last item. The
// mission is considered delivered either way; a missing or negative ACK
// is only logged.
func (r *run) finishUpload(ctx context.Context) error {
	if err := sleep(ctx, r.e.cfg.FinalSettle); err != nil {
		return errors.Wrap(err, "upload")
	}
	m, err := r.poll(ctx, mavlink.MsgMissionAck)
	if err != nil {
		return err
	}
	switch {
	case m == nil:
		r.log.Warn("No mission ACK from vehicle")
	default:
		if result, _ := mavlink.AckResult(*m); result != mavlink.MissionAccepted {
			r.log.Warn("Vehicle did not accept mission", "result", result)
		}
	}
	r.done("Mission uploaded")
	return nil
}
