// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"encoding/binary"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Serial frame layout, before byte stuffing:
//
//	START | len (u16 LE) | sys | comp | seq | CBOR payload | CRC (u16 BE) | END
//
// The CRC covers everything from the length to the end of the payload. The
// payload is the flattened message map including its "type".

var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// EncodeFrame creates a complete wire-formatted frame for env, including
// framing and byte stuffing.
func EncodeFrame(env Envelope) ([]byte, error) {
	payload, err := cbor.Marshal(env.Message.Flatten())
	if err != nil {
		return nil, errors.Wrap(err, "encode CBOR payload")
	}
	if len(payload) > MaxPayloadSize {
		return nil, errors.Errorf("CBOR payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	data := make([]byte, LengthSize+HeaderSize, LengthSize+HeaderSize+len(payload)+2)
	binary.LittleEndian.PutUint16(data[0:2], uint16(len(payload)))
	data[2] = env.Header.SystemID
	data[3] = env.Header.ComponentID
	data[4] = env.Header.Sequence
	data = append(data, payload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	stuffed := stuffBytes(data)
	frame := make([]byte, 0, len(stuffed)+2)
	frame = append(frame, StartByte)
	frame = append(frame, stuffed...)
	frame = append(frame, EndByte)
	return frame, nil
}

// DecodePayload decodes a CBOR frame payload into a Message.
func DecodePayload(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, errors.New("empty CBOR payload")
	}
	var raw map[string]interface{}
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return Message{}, errors.Wrap(err, "decode CBOR payload")
	}
	var m Message
	if err := m.fromMap(raw); err != nil {
		return Message{}, err
	}
	return m, nil
}

// stuffBytes escapes START, END and ESC as ESC + (byte XOR EscXor).
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing. It is the inverse of the encoder's
// escaping.
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		if escapeNext {
			result = append(result, b^EscXor)
			escapeNext = false
		} else if b == EscByte {
			escapeNext = true
		} else {
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, errors.New("incomplete escape sequence at end of data")
	}
	return result, nil
}
