// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Message is a single MAVLink message in bridge form: a type name plus a
// flat set of fields. Enum fields are objects of the form {"type": NAME}.
type Message struct {
	Type   string
	Fields map[string]interface{}

	// Counter is the bridge's per-type receive counter for this message,
	// zero when the transport does not report one.
	Counter uint64
	// Received is when the message was taken from the transport.
	Received time.Time
}

// NewMessage creates a message of the given type with the given fields.
func NewMessage(msgType string, fields map[string]interface{}) Message {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Message{Type: msgType, Fields: fields}
}

// Enum wraps an enum value name the way the bridge expects it.
func Enum(name string) map[string]interface{} {
	return map[string]interface{}{"type": name}
}

// Flatten returns the fields with the type name merged in, ready for
// encoding.
func (m Message) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["type"] = m.Type
	return out
}

// MarshalJSON encodes the message as a flat object.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Flatten())
}

// UnmarshalJSON decodes a flat object into type and fields.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return m.fromMap(raw)
}

func (m *Message) fromMap(raw map[string]interface{}) error {
	t, ok := raw["type"].(string)
	if !ok || t == "" {
		return errors.New("message has no type")
	}
	delete(raw, "type")
	m.Type = t
	m.Fields = raw
	return nil
}

// Header addresses an outbound message.
type Header struct {
	SystemID    uint8 `json:"system_id" cbor:"1,keyasint"`
	ComponentID uint8 `json:"component_id" cbor:"2,keyasint"`
	Sequence    uint8 `json:"sequence" cbor:"3,keyasint"`
}

// GCSHeader is the header used for messages sent by this ground station.
func GCSHeader() Header {
	return Header{SystemID: GCSSystemID, ComponentID: GCSComponentID}
}

// Envelope is a message with its sender header, the unit posted to the
// bridge.
type Envelope struct {
	Header  Header  `json:"header"`
	Message Message `json:"message"`
}

// Target identifies the system and component a message is addressed to.
type Target struct {
	System    uint8
	Component uint8
}

// DefaultTarget is the autopilot of the first vehicle.
var DefaultTarget = Target{System: VehicleSystemID, Component: AutopilotID}

// GCSTarget addresses the ground station.
var GCSTarget = Target{System: GCSSystemID, Component: GCSComponentID}

// Seq returns the message's seq field.
func (m Message) Seq() (uint16, bool) {
	v, ok := GetFieldUint(m.Fields, "seq")
	if !ok || v > 0xFFFF {
		return 0, false
	}
	return uint16(v), true
}

// Field value extraction helpers. Values may come from JSON (float64,
// map[string]interface{}) or CBOR (uint64, int64, map[interface{}]interface{}).

// GetFieldUint extracts a non-negative integer field.
func GetFieldUint(m map[string]interface{}, key string) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	case int:
		if val >= 0 {
			return uint64(val), true
		}
	case uint16:
		return uint64(val), true
	case uint8:
		return uint64(val), true
	case float64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

// GetFieldInt extracts a signed integer field.
func GetFieldInt(m map[string]interface{}, key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case uint64:
		return int64(val), true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	}
	return 0, false
}

// GetFieldFloat extracts a numeric field as float64.
func GetFieldFloat(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	}
	return 0, false
}

// GetFieldBool extracts a flag. Integer 0/1 flags are accepted.
func GetFieldBool(m map[string]interface{}, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := GetFieldUint(m, key); ok {
		return n != 0, true
	}
	return false, false
}

// GetFieldEnum extracts the value name of an enum field. A bare string is
// also accepted.
func GetFieldEnum(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case map[string]interface{}:
		s, ok := val["type"].(string)
		return s, ok
	case map[interface{}]interface{}:
		s, ok := val["type"].(string)
		return s, ok
	}
	return "", false
}
