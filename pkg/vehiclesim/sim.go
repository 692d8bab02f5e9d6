// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package vehiclesim is an in-memory flight controller that answers the
// mission protocol. It behaves like a bridge mailbox: every reply
// overwrites the previous reply of the same type. Replies can be dropped or
// delayed to exercise the transfer engine.
package vehiclesim

import (
	"context"
	"sync"
	"time"

	"github.com/openaerial/surveyplan/pkg/bridge"
	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/pkg/errors"
)

// ErrClosed is returned by Send and Poll after Close.
var ErrClosed = errors.New("simulator closed")

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithDropEvery drops every nth reply. Zero disables loss.
func WithDropEvery(n int) Option {
	return func(v *Vehicle) {
		v.dropEvery = n
	}
}

// WithSilent makes the vehicle accept messages without ever replying.
func WithSilent() Option {
	return func(v *Vehicle) {
		v.silent = true
	}
}

// WithLatency delays every reply by d.
func WithLatency(d time.Duration) Option {
	return func(v *Vehicle) {
		v.latency = d
	}
}

// Vehicle is a simulated autopilot. It is safe for concurrent use.
type Vehicle struct {
	mailbox *bridge.Mailbox

	dropEvery int
	silent    bool
	latency   time.Duration

	mu       sync.Mutex
	closed   bool
	mission  []mission.Item
	pending  []mission.Item
	expected int
	replies  int
	dropped  int
	polls    map[string]int
	received map[string]int
	gcsAck   string
	timers   []*time.Timer
}

// New creates a vehicle with an empty mission.
func New(opts ...Option) *Vehicle {
	v := &Vehicle{
		mailbox:  bridge.NewMailbox(),
		polls:    make(map[string]int),
		received: make(map[string]int),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// String describes the channel for status output.
func (v *Vehicle) String() string {
	return "Simulator"
}

// Mailbox exposes the replies the vehicle has produced.
func (v *Vehicle) Mailbox() *bridge.Mailbox {
	return v.mailbox
}

// Preload replaces the stored mission. items are renumbered from 0, so
// items[0] is the home position.
func (v *Vehicle) Preload(items []mission.Item) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mission = mission.Renumber(append([]mission.Item(nil), items...), 0)
}

// Mission returns a copy of the stored mission, home included.
func (v *Vehicle) Mission() []mission.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]mission.Item, len(v.mission))
	copy(out, v.mission)
	return out
}

// Polls returns how many times msgType has been polled.
func (v *Vehicle) Polls(msgType string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.polls[msgType]
}

// Received returns how many msgType messages the vehicle was sent.
func (v *Vehicle) Received(msgType string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.received[msgType]
}

// Dropped returns how many replies were lost on purpose.
func (v *Vehicle) Dropped() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropped
}

// GCSAck returns the result of the last MISSION_ACK sent by the ground
// station, or "" if none.
func (v *Vehicle) GCSAck() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gcsAck
}

// Send delivers a ground station message to the vehicle.
func (v *Vehicle) Send(ctx context.Context, m mavlink.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.received[m.Type]++

	switch m.Type {
	case mavlink.MsgMissionClearAll:
		v.mission = nil
		v.pending = nil
		v.expected = 0
		v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionAccepted))

	case mavlink.MsgMissionCount:
		n, _ := mavlink.GetFieldUint(m.Fields, "count")
		if n == 0 {
			v.mission = nil
			v.expected = 0
			v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionAccepted))
			return nil
		}
		v.expected = int(n)
		v.pending = make([]mission.Item, n)
		v.reply(mavlink.NewMissionRequest(mavlink.GCSTarget, 0))

	case mavlink.MsgMissionItemInt:
		v.storeItem(m)

	case mavlink.MsgMissionRequestList:
		v.reply(mavlink.NewMissionCount(mavlink.GCSTarget, uint16(len(v.mission))))

	case mavlink.MsgMissionRequestInt, mavlink.MsgMissionRequest:
		seq, ok := m.Seq()
		if !ok || int(seq) >= len(v.mission) {
			v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionInvalidSeq))
			return nil
		}
		v.reply(mavlink.NewMissionItemInt(mavlink.GCSTarget, v.mission[seq]))

	case mavlink.MsgMissionAck:
		v.gcsAck, _ = mavlink.AckResult(m)
	}
	return nil
}

// storeItem handles an uploaded item. Caller holds v.mu.
func (v *Vehicle) storeItem(m mavlink.Message) {
	it, err := mavlink.ItemFromMessage(m)
	if err != nil || v.expected == 0 {
		v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionError))
		return
	}
	if int(it.Seq) >= v.expected {
		v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionInvalidSeq))
		return
	}

	v.pending[it.Seq] = it
	if int(it.Seq) == v.expected-1 {
		v.mission = v.pending
		v.pending = nil
		v.expected = 0
		v.reply(mavlink.NewMissionAck(mavlink.GCSTarget, mavlink.MissionAccepted))
		return
	}
	v.reply(mavlink.NewMissionRequest(mavlink.GCSTarget, it.Seq+1))
}

// reply queues a message for the ground station. Caller holds v.mu.
func (v *Vehicle) reply(m mavlink.Message) {
	if v.silent {
		return
	}
	v.replies++
	if v.dropEvery > 0 && v.replies%v.dropEvery == 0 {
		v.dropped++
		return
	}
	if v.latency <= 0 {
		v.mailbox.Put(m)
		return
	}
	v.timers = append(v.timers, time.AfterFunc(v.latency, func() {
		v.mailbox.Put(m)
	}))
}

// Poll returns the vehicle's latest reply of msgType, or nil.
func (v *Vehicle) Poll(ctx context.Context, msgType string) (*mavlink.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrClosed
	}
	v.polls[msgType]++
	v.mu.Unlock()

	if msgType == mavlink.MsgHeartbeat && !v.silent {
		v.mailbox.Put(heartbeat())
	}
	return v.mailbox.Get(msgType), nil
}

// heartbeat is what the vehicle reports whenever it is asked; a live
// autopilot streams it at 1 Hz.
func heartbeat() mavlink.Message {
	return mavlink.NewMessage(mavlink.MsgHeartbeat, map[string]interface{}{
		"type":          mavlink.Enum("MAV_TYPE_QUADROTOR"),
		"autopilot":     mavlink.Enum("MAV_AUTOPILOT_PX4"),
		"system_status": mavlink.Enum("MAV_STATE_STANDBY"),
	})
}

// Close stops pending delayed replies.
func (v *Vehicle) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	for _, t := range v.timers {
		t.Stop()
	}
	v.timers = nil
	return nil
}
