// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vehiclesim

import (
	"context"
	"testing"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/openaerial/surveyplan/pkg/mission"
)

func pollSeq(t *testing.T, v *Vehicle, msgType string) uint16 {
	t.Helper()
	m, err := v.Poll(context.Background(), msgType)
	if err != nil || m == nil {
		t.Fatalf("Poll(%s) = %v, %v", msgType, m, err)
	}
	seq, ok := m.Seq()
	if !ok {
		t.Fatalf("%s has no seq", msgType)
	}
	return seq
}

func TestVehicle_Upload(t *testing.T) {
	v := New()
	ctx := context.Background()
	items := []mission.Item{
		mission.NewWaypoint(47.0, 8.0, 0),
		mission.NewWaypoint(47.1, 8.1, 50),
		mission.NewWaypoint(47.2, 8.2, 60),
	}

	v.Send(ctx, mavlink.NewMissionClearAll(mavlink.DefaultTarget))
	m, _ := v.Poll(ctx, mavlink.MsgMissionAck)
	if r, _ := mavlink.AckResult(*m); r != mavlink.MissionAccepted {
		t.Errorf("clear ack = %q", r)
	}

	v.Send(ctx, mavlink.NewMissionCount(mavlink.DefaultTarget, uint16(len(items))))
	for i := range items {
		if seq := pollSeq(t, v, mavlink.MsgMissionRequest); int(seq) != i {
			t.Fatalf("requested seq %d, want %d", seq, i)
		}
		it := items[i]
		it.Seq = uint16(i)
		v.Send(ctx, mavlink.NewMissionItemInt(mavlink.DefaultTarget, it))
	}

	m, _ = v.Poll(ctx, mavlink.MsgMissionAck)
	if m.Counter != 2 {
		t.Errorf("ack counter = %d, want 2", m.Counter)
	}
	got := v.Mission()
	if len(got) != 3 || got[2].Lat != 47.2 || got[2].Alt != 60 {
		t.Errorf("stored mission = %v", got)
	}
	if v.Polls(mavlink.MsgMissionRequest) != 3 {
		t.Errorf("Polls() = %d", v.Polls(mavlink.MsgMissionRequest))
	}
}

func TestVehicle_Download(t *testing.T) {
	v := New()
	ctx := context.Background()
	v.Preload([]mission.Item{
		mission.NewWaypoint(1, 2, 0),
		{Command: mission.CmdTakeoff, Lat: 1, Lon: 2, Alt: 20},
	})

	v.Send(ctx, mavlink.NewMissionRequestList(mavlink.DefaultTarget))
	m, _ := v.Poll(ctx, mavlink.MsgMissionCount)
	if n, _ := mavlink.GetFieldUint(m.Fields, "count"); n != 2 {
		t.Fatalf("count = %d", n)
	}

	v.Send(ctx, mavlink.NewMissionRequestInt(mavlink.DefaultTarget, 1))
	m, _ = v.Poll(ctx, mavlink.MsgMissionItemInt)
	it, err := mavlink.ItemFromMessage(*m)
	if err != nil {
		t.Fatal(err)
	}
	if it.Seq != 1 || it.Command != mission.CmdTakeoff || it.Alt != 20 {
		t.Errorf("item = %v", it)
	}

	v.Send(ctx, mavlink.NewMissionRequestInt(mavlink.DefaultTarget, 9))
	m, _ = v.Poll(ctx, mavlink.MsgMissionAck)
	if r, _ := mavlink.AckResult(*m); r != mavlink.MissionInvalidSeq {
		t.Errorf("out of range ack = %q", r)
	}

	v.Send(ctx, mavlink.NewMissionAck(mavlink.DefaultTarget, mavlink.MissionAccepted))
	if v.GCSAck() != mavlink.MissionAccepted {
		t.Errorf("GCSAck() = %q", v.GCSAck())
	}
}

func TestVehicle_Preload_CopiesInput(t *testing.T) {
	items := []mission.Item{{Seq: 7}, {Seq: 8}}
	v := New()
	v.Preload(items)
	if items[0].Seq != 7 {
		t.Error("Preload() modified the caller's slice")
	}
	if got := v.Mission(); got[0].Seq != 0 || got[1].Seq != 1 {
		t.Errorf("Mission() = %v", got)
	}
}

func TestVehicle_DropEvery(t *testing.T) {
	v := New(WithDropEvery(2))
	ctx := context.Background()

	v.Send(ctx, mavlink.NewMissionRequestList(mavlink.DefaultTarget))
	v.Send(ctx, mavlink.NewMissionClearAll(mavlink.DefaultTarget))

	if m, _ := v.Poll(ctx, mavlink.MsgMissionCount); m == nil {
		t.Error("first reply should arrive")
	}
	if m, _ := v.Poll(ctx, mavlink.MsgMissionAck); m != nil {
		t.Error("second reply should be dropped")
	}
	if v.Dropped() != 1 {
		t.Errorf("Dropped() = %d", v.Dropped())
	}
}

func TestVehicle_Silent(t *testing.T) {
	v := New(WithSilent())
	ctx := context.Background()
	v.Send(ctx, mavlink.NewMissionCount(mavlink.DefaultTarget, 3))
	if m, _ := v.Poll(ctx, mavlink.MsgMissionRequest); m != nil {
		t.Error("silent vehicle replied")
	}
	if v.Received(mavlink.MsgMissionCount) != 1 {
		t.Errorf("Received() = %d", v.Received(mavlink.MsgMissionCount))
	}
}

func TestVehicle_Latency(t *testing.T) {
	v := New(WithLatency(20 * time.Millisecond))
	ctx := context.Background()
	v.Send(ctx, mavlink.NewMissionRequestList(mavlink.DefaultTarget))

	if m, _ := v.Poll(ctx, mavlink.MsgMissionCount); m != nil {
		t.Error("reply arrived before the latency elapsed")
	}
	time.Sleep(100 * time.Millisecond)
	if m, _ := v.Poll(ctx, mavlink.MsgMissionCount); m == nil {
		t.Error("reply never arrived")
	}
}

func TestVehicle_Close(t *testing.T) {
	v := New()
	v.Close()
	ctx := context.Background()
	if err := v.Send(ctx, mavlink.NewMissionRequestList(mavlink.DefaultTarget)); err != ErrClosed {
		t.Errorf("Send() = %v, want ErrClosed", err)
	}
	if _, err := v.Poll(ctx, mavlink.MsgMissionCount); err != ErrClosed {
		t.Errorf("Poll() = %v, want ErrClosed", err)
	}
}

func TestVehicle_Heartbeat(t *testing.T) {
	ctx := context.Background()
	v := New()
	first, _ := v.Poll(ctx, mavlink.MsgHeartbeat)
	second, _ := v.Poll(ctx, mavlink.MsgHeartbeat)
	if first == nil || second == nil {
		t.Fatal("no heartbeat")
	}
	if second.Counter <= first.Counter {
		t.Errorf("heartbeat counter did not advance: %d then %d", first.Counter, second.Counter)
	}

	if m, _ := New(WithSilent()).Poll(ctx, mavlink.MsgHeartbeat); m != nil {
		t.Error("silent vehicle sent a heartbeat")
	}
}
