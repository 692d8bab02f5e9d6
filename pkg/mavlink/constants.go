// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mavlink is the wire model of a mavlink2rest style bridge: JSON
// message envelopes addressed by message type name, the mission protocol
// messages built from them, and a framed CBOR encoding of the same
// envelopes for serial links.
package mavlink

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Frame size limits
const (
	HeaderSize     = 3 // system, component, sequence
	LengthSize     = 2
	MaxPayloadSize = 1024
	MaxFrameSize   = LengthSize + HeaderSize + MaxPayloadSize + 2
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	stateHeader
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)

// Message types of the mission protocol
const (
	MsgMissionClearAll    = "MISSION_CLEAR_ALL"
	MsgMissionCount       = "MISSION_COUNT"
	MsgMissionRequest     = "MISSION_REQUEST"
	MsgMissionRequestInt  = "MISSION_REQUEST_INT"
	MsgMissionRequestList = "MISSION_REQUEST_LIST"
	MsgMissionItemInt     = "MISSION_ITEM_INT"
	MsgMissionAck         = "MISSION_ACK"
	MsgMissionCurrent     = "MISSION_CURRENT"
	MsgHeartbeat          = "HEARTBEAT"
)

// MissionMessageTypes lists the message types exchanged during a mission
// transfer.
var MissionMessageTypes = []string{
	MsgMissionClearAll,
	MsgMissionCount,
	MsgMissionRequest,
	MsgMissionRequestInt,
	MsgMissionRequestList,
	MsgMissionItemInt,
	MsgMissionAck,
}

// Enum values
const (
	FrameGlobalRelativeAlt = "MAV_FRAME_GLOBAL_RELATIVE_ALT"
	MissionTypeMission     = "MAV_MISSION_TYPE_MISSION"

	MissionAccepted           = "MAV_MISSION_ACCEPTED"
	MissionError              = "MAV_MISSION_ERROR"
	MissionInvalidSeq         = "MAV_MISSION_INVALID_SEQUENCE"
	MissionOperationCancelled = "MAV_MISSION_OPERATION_CANCELLED"
)

// CoordScale converts degrees to the integer lat/lon of MISSION_ITEM_INT.
const CoordScale = 1e7

// Well known system and component ids
const (
	GCSSystemID     = 255
	GCSComponentID  = 0
	VehicleSystemID = 1
	AutopilotID     = 1
)
