// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mission holds the mission data model shared by the survey planner
// and the transfer engine: mission items, their command encoding, and the
// survey boundary.
package mission

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Command identifies what a mission item does. Values are the MAVLink
// MAV_CMD numeric identifiers.
type Command uint16

// Supported commands
const (
	CmdWaypoint                 Command = 16
	CmdReturnToLaunch           Command = 20
	CmdLand                     Command = 21
	CmdTakeoff                  Command = 22
	CmdChangeSpeed              Command = 178
	CmdSetCameraTriggerDistance Command = 206
)

// DefaultCommand is used when a wire name is not in the command table.
const DefaultCommand = CmdWaypoint

// commandNames is the bidirectional command table. Reverse lookups are
// built from it at init.
var commandNames = map[Command]string{
	CmdWaypoint:                 "MAV_CMD_NAV_WAYPOINT",
	CmdReturnToLaunch:           "MAV_CMD_NAV_RETURN_TO_LAUNCH",
	CmdLand:                     "MAV_CMD_NAV_LAND",
	CmdTakeoff:                  "MAV_CMD_NAV_TAKEOFF",
	CmdChangeSpeed:              "MAV_CMD_DO_CHANGE_SPEED",
	CmdSetCameraTriggerDistance: "MAV_CMD_DO_SET_CAM_TRIGG_DIST",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

// Name returns the wire name of the command, e.g. MAV_CMD_NAV_WAYPOINT.
// Unknown commands are rendered as MAV_CMD_<id>.
func (c Command) Name() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("MAV_CMD_%d", uint16(c))
}

// String returns a short human readable name.
func (c Command) String() string {
	switch c {
	case CmdWaypoint:
		return "WAYPOINT"
	case CmdReturnToLaunch:
		return "RETURN_TO_LAUNCH"
	case CmdLand:
		return "LAND"
	case CmdTakeoff:
		return "TAKEOFF"
	case CmdChangeSpeed:
		return "CHANGE_SPEED"
	case CmdSetCameraTriggerDistance:
		return "SET_CAMERA_TRIGGER_DISTANCE"
	default:
		return fmt.Sprintf("CMD_%d", uint16(c))
	}
}

// Known reports whether c is in the command table.
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

// Positional reports whether the command carries a meaningful position.
func (c Command) Positional() bool {
	switch c {
	case CmdWaypoint, CmdTakeoff, CmdReturnToLaunch, CmdLand:
		return true
	}
	return false
}

// LookupCommand returns the command for a wire name.
func LookupCommand(name string) (Command, bool) {
	cmd, ok := commandsByName[name]
	return cmd, ok
}

// CommandFromName returns the command for a wire name, falling back to
// DefaultCommand for names not in the table.
func CommandFromName(name string) Command {
	if cmd, ok := commandsByName[name]; ok {
		return cmd
	}
	return DefaultCommand
}

// CommandNames returns every wire name in the table, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commandsByName))
	for name := range commandsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Item is one step of a mission.
type Item struct {
	Seq          uint16  `json:"seq" yaml:"seq" cbor:"1,keyasint"`
	Command      Command `json:"command" yaml:"command" cbor:"2,keyasint"`
	Param1       float64 `json:"param1,omitempty" yaml:"param1,omitempty" cbor:"3,keyasint,omitempty"`
	Param2       float64 `json:"param2,omitempty" yaml:"param2,omitempty" cbor:"4,keyasint,omitempty"`
	Param3       float64 `json:"param3,omitempty" yaml:"param3,omitempty" cbor:"5,keyasint,omitempty"`
	Param4       float64 `json:"param4,omitempty" yaml:"param4,omitempty" cbor:"6,keyasint,omitempty"`
	Lat          float64 `json:"lat" yaml:"lat" cbor:"7,keyasint"`
	Lon          float64 `json:"lon" yaml:"lon" cbor:"8,keyasint"`
	Alt          float64 `json:"alt" yaml:"alt" cbor:"9,keyasint"`
	Current      bool    `json:"current,omitempty" yaml:"current,omitempty" cbor:"10,keyasint,omitempty"`
	Autocontinue bool    `json:"autocontinue,omitempty" yaml:"autocontinue,omitempty" cbor:"11,keyasint,omitempty"`
}

// NewWaypoint returns a WAYPOINT item at the given position.
func NewWaypoint(lat, lon, alt float64) Item {
	return Item{Command: CmdWaypoint, Lat: lat, Lon: lon, Alt: alt}
}

// Position returns the item's latitude and longitude.
func (it Item) Position() Position {
	return Position{Lat: it.Lat, Lon: it.Lon}
}

func (it Item) String() string {
	if it.Command.Positional() {
		return fmt.Sprintf("#%d %s lat=%.7f lon=%.7f alt=%.1f", it.Seq, it.Command, it.Lat, it.Lon, it.Alt)
	}
	return fmt.Sprintf("#%d %s p1=%g p2=%g p3=%g p4=%g", it.Seq, it.Command, it.Param1, it.Param2, it.Param3, it.Param4)
}

// Renumber assigns dense sequence numbers to items in place, starting at
// first.
func Renumber(items []Item, first uint16) []Item {
	for i := range items {
		items[i].Seq = first + uint16(i)
	}
	return items
}

// Validate checks that Seq values are contiguous from first with no
// duplicates and that positional items have coordinates in range. Items
// that would need a seq past 65535 are rejected.
func Validate(items []Item, first uint16) error {
	if limit := 0xFFFF - int(first) + 1; len(items) > limit {
		return errors.Errorf("%d items starting at seq %d, at most %d fit", len(items), first, limit)
	}
	for i, it := range items {
		if want := first + uint16(i); it.Seq != want {
			return errors.Errorf("item %d: seq %d, expected %d", i, it.Seq, want)
		}
		if !it.Command.Positional() {
			continue
		}
		if err := it.Position().Validate(); err != nil {
			return errors.WithMessagef(err, "item %d", it.Seq)
		}
	}
	return nil
}

// Position is a geographic point in degrees.
type Position struct {
	Lat float64 `json:"lat" yaml:"lat" cbor:"1,keyasint"`
	Lon float64 `json:"lon" yaml:"lon" cbor:"2,keyasint"`
}

// Validate reports coordinates outside the WGS84 range.
func (p Position) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return errors.Errorf("latitude %v out of range", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return errors.Errorf("longitude %v out of range", p.Lon)
	}
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("%.7f,%.7f", p.Lat, p.Lon)
}
