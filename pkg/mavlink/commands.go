// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"math"

	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/pkg/errors"
)

// Mission protocol builders. Ground station side first, then the vehicle
// side used by simulators and tests.

func targeted(t Target, msgType string, fields map[string]interface{}) Message {
	fields["target_system"] = uint64(t.System)
	fields["target_component"] = uint64(t.Component)
	if _, ok := fields["mission_type"]; !ok {
		fields["mission_type"] = Enum(MissionTypeMission)
	}
	return NewMessage(msgType, fields)
}

// NewMissionClearAll creates a MISSION_CLEAR_ALL message.
func NewMissionClearAll(t Target) Message {
	return targeted(t, MsgMissionClearAll, map[string]interface{}{})
}

// NewMissionCount creates a MISSION_COUNT message. count includes the home
// item at sequence 0.
func NewMissionCount(t Target, count uint16) Message {
	return targeted(t, MsgMissionCount, map[string]interface{}{
		"count": uint64(count),
	})
}

// NewMissionRequestList asks the vehicle for its mission count.
func NewMissionRequestList(t Target) Message {
	return targeted(t, MsgMissionRequestList, map[string]interface{}{})
}

// NewMissionRequestInt asks the vehicle for the item at seq.
func NewMissionRequestInt(t Target, seq uint16) Message {
	return targeted(t, MsgMissionRequestInt, map[string]interface{}{
		"seq": uint64(seq),
	})
}

// NewMissionRequest is sent by the vehicle to ask for the item at seq.
func NewMissionRequest(t Target, seq uint16) Message {
	return targeted(t, MsgMissionRequest, map[string]interface{}{
		"seq": uint64(seq),
	})
}

// NewMissionAck creates a MISSION_ACK with the given MAV_MISSION_RESULT.
// The result travels as "mavtype" since "type" names the message.
func NewMissionAck(t Target, result string) Message {
	return targeted(t, MsgMissionAck, map[string]interface{}{
		"mavtype": Enum(result),
	})
}

// NewMissionItemInt encodes it as MISSION_ITEM_INT. Latitude and longitude
// are scaled by 1e7 and rounded; altitude is relative to home.
func NewMissionItemInt(t Target, it mission.Item) Message {
	current := uint64(0)
	if it.Current {
		current = 1
	}
	return targeted(t, MsgMissionItemInt, map[string]interface{}{
		"seq":          uint64(it.Seq),
		"frame":        Enum(FrameGlobalRelativeAlt),
		"command":      Enum(it.Command.Name()),
		"current":      current,
		"autocontinue": uint64(1),
		"x":            int64(math.Round(it.Lat * CoordScale)),
		"y":            int64(math.Round(it.Lon * CoordScale)),
		"z":            it.Alt,
		"param1":       it.Param1,
		"param2":       it.Param2,
		"param3":       it.Param3,
		"param4":       it.Param4,
	})
}

// ItemFromMessage decodes a MISSION_ITEM_INT. Command names missing from
// the command table decode as mission.DefaultCommand.
func ItemFromMessage(m Message) (mission.Item, error) {
	if m.Type != MsgMissionItemInt {
		return mission.Item{}, errors.Errorf("expected %s, got %s", MsgMissionItemInt, m.Type)
	}
	seq, ok := m.Seq()
	if !ok {
		return mission.Item{}, errors.New("mission item has no seq")
	}

	it := mission.Item{Seq: seq, Command: mission.DefaultCommand}
	if name, ok := GetFieldEnum(m.Fields, "command"); ok {
		it.Command = mission.CommandFromName(name)
	}
	x, _ := GetFieldFloat(m.Fields, "x")
	y, _ := GetFieldFloat(m.Fields, "y")
	it.Lat = x / CoordScale
	it.Lon = y / CoordScale
	it.Alt, _ = GetFieldFloat(m.Fields, "z")
	it.Param1, _ = GetFieldFloat(m.Fields, "param1")
	it.Param2, _ = GetFieldFloat(m.Fields, "param2")
	it.Param3, _ = GetFieldFloat(m.Fields, "param3")
	it.Param4, _ = GetFieldFloat(m.Fields, "param4")
	it.Current, _ = GetFieldBool(m.Fields, "current")
	it.Autocontinue, _ = GetFieldBool(m.Fields, "autocontinue")
	return it, nil
}

// AckResult returns the MAV_MISSION_RESULT of a MISSION_ACK.
func AckResult(m Message) (string, bool) {
	if m.Type != MsgMissionAck {
		return "", false
	}
	return GetFieldEnum(m.Fields, "mavtype")
}
