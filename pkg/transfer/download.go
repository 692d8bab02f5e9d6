// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transfer

import (
	"context"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/pkg/errors"
)

// Download reads the vehicle's mission. Result.Items holds the mission as
// stored on the vehicle, home at seq 0. A vehicle that reports no mission,
// or never reports a count, yields an empty successful result.
//
// The returned Result is nil only when err is ErrBusy.
func (e *Engine) Download(ctx context.Context, obs Observer) (*Result, error) {
	if !e.acquire() {
		return nil, ErrBusy
	}
	defer e.release()

	r := e.newRun(DirectionDownload, obs)
	r.log.Info("Starting download")

	items, err := r.download(ctx)
	if err != nil {
		r.fail(err)
		return r.sess.result(nil), err
	}
	return r.sess.result(items), nil
}

func (r *run) download(ctx context.Context) ([]mission.Item, error) {
	r.snapshot(ctx, mavlink.MsgMissionCount, mavlink.MsgMissionItemInt)

	r.transition(StateRequestCount)
	count, err := r.requestCount(ctx)
	if err != nil {
		return nil, err
	}
	r.sess.Total = count
	if count == 0 {
		r.log.Info("Vehicle has no mission")
		r.done("Vehicle has no mission")
		return []mission.Item{}, nil
	}

	items := make([]mission.Item, 0, count)
	for i := 0; i < count; i++ {
		r.sess.Seq = i
		r.transition(StateRequestItem)

		it, err := r.requestItem(ctx, uint16(i))
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	r.transition(StateAckSent)
	if err := r.send(ctx, mavlink.NewMissionAck(r.e.cfg.Target, mavlink.MissionAccepted)); err != nil {
		return nil, err
	}
	r.done("Download complete")
	return items, nil
}

// requestCount asks for the mission size. Running out of attempts is not
// an error; the vehicle is treated as having no mission.
func (r *run) requestCount(ctx context.Context) (int, error) {
	cfg := r.e.cfg
	req := mavlink.NewMissionRequestList(cfg.Target)
	if err := r.send(ctx, req); err != nil {
		return 0, err
	}
	sent := time.Now()
	r.transition(StateAwaitingCount)

	for attempt := 0; attempt < cfg.CountAttempts; attempt++ {
		if time.Since(sent) > cfg.ResendInterval {
			if err := r.resend(ctx, req); err != nil {
				return 0, err
			}
			sent = time.Now()
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return 0, errors.Wrap(err, "request count")
		}

		m, err := r.poll(ctx, mavlink.MsgMissionCount)
		if err != nil {
			return 0, err
		}
		if m == nil {
			r.sess.Retries++
			continue
		}
		n, _ := mavlink.GetFieldUint(m.Fields, "count")
		r.sess.Retries = 0
		r.log.Info("Mission count received", "count", n)
		if n > 0xFFFF {
			return 0, errors.Errorf("mission count %d out of range", n)
		}
		return int(n), nil
	}

	r.log.Warn("No mission count received", "attempts", cfg.CountAttempts)
	return 0, nil
}

// requestItem fetches the item at seq, accepting only a reply carrying
// that seq.
func (r *run) requestItem(ctx context.Context, seq uint16) (mission.Item, error) {
	cfg := r.e.cfg
	req := mavlink.NewMissionRequestInt(cfg.Target, seq)
	if err := r.send(ctx, req); err != nil {
		return mission.Item{}, err
	}
	sent := time.Now()
	r.transition(StateAwaitingItem)

	for attempt := 0; attempt < cfg.ItemAttempts; attempt++ {
		if time.Since(sent) > cfg.ResendInterval {
			if err := r.resend(ctx, req); err != nil {
				return mission.Item{}, err
			}
			sent = time.Now()
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return mission.Item{}, errors.Wrapf(err, "request item %d", seq)
		}

		m, err := r.poll(ctx, mavlink.MsgMissionItemInt)
		if err != nil {
			return mission.Item{}, err
		}
		if m == nil {
			r.sess.Retries++
			continue
		}
		if got, ok := m.Seq(); !ok || got != seq {
			r.sess.Retries++
			continue
		}

		it, err := mavlink.ItemFromMessage(*m)
		if err != nil {
			r.sess.Retries++
			r.log.Warn("Malformed mission item", "seq", seq, "error", err.Error())
			continue
		}
		r.sess.Retries = 0
		r.sess.LastActivity = time.Now()
		return it, nil
	}

	return mission.Item{}, errors.Wrapf(ErrRetryBudget, "no reply for item %d after %d polls", seq, cfg.ItemAttempts)
}
