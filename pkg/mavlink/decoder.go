// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Frame is a decoded serial frame.
type Frame struct {
	Header    Header
	Message   Message
	CRC       uint16
	Timestamp time.Time
}

// Envelope returns the frame's header and message.
func (f *Frame) Envelope() Envelope {
	return Envelope{Header: f.Header, Message: f.Message}
}

// Decoder implements the serial frame decoder state machine
type Decoder struct {
	state      int
	buffer     []byte
	escapeNext bool
	length     int
	crc        uint16
	rawBuffer  []byte // raw bytes including framing
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxFrameSize),
		rawBuffer: make([]byte, 0, MaxFrameSize*2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.escapeNext = false
	d.length = 0
	d.crc = 0
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns the raw bytes accumulated since the last frame start
func (d *Decoder) RawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte. It returns a completed frame, nil
// while a frame is incomplete, or an error when the frame is malformed.
// After an error the decoder waits for the next START byte.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	// Unescaped framing bytes never occur inside a frame body.
	if b == StartByte {
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, StartByte)
		d.state = stateLength
		return nil, nil
	}

	if b == EndByte {
		state := d.state
		if state == stateEnd {
			f, err := d.finish()
			d.Reset()
			return f, err
		}
		d.Reset()
		if state == stateIdle {
			return nil, nil
		}
		return nil, errors.Errorf("unexpected END byte in state %d", state)
	}

	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		return nil, nil

	case stateLength:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) < LengthSize {
			return nil, nil
		}
		d.length = int(binary.LittleEndian.Uint16(d.buffer[:LengthSize]))
		if d.length > MaxPayloadSize {
			n := d.length
			d.Reset()
			return nil, errors.Errorf("invalid length: %d (max %d)", n, MaxPayloadSize)
		}
		d.state = stateHeader
		return nil, nil

	case stateHeader:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) == LengthSize+HeaderSize {
			if d.length == 0 {
				d.state = stateCRC1
			} else {
				d.state = statePayload
			}
		}
		return nil, nil

	case statePayload:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) == LengthSize+HeaderSize+d.length {
			d.state = stateCRC1
		}
		return nil, nil

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2
		return nil, nil

	case stateCRC2:
		d.crc |= uint16(b)
		d.state = stateEnd
		return nil, nil

	case stateEnd:
		d.Reset()
		return nil, errors.New("expected END byte after CRC")

	default:
		d.Reset()
		return nil, errors.Errorf("invalid state: %d", d.state)
	}
}

func (d *Decoder) finish() (*Frame, error) {
	calculated := CalculateCRC(d.buffer)
	if d.crc != calculated {
		return nil, errors.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", calculated, d.crc)
	}

	msg, err := DecodePayload(d.buffer[LengthSize+HeaderSize:])
	if err != nil {
		return nil, err
	}
	now := time.Now()
	msg.Received = now

	return &Frame{
		Header: Header{
			SystemID:    d.buffer[2],
			ComponentID: d.buffer[3],
			Sequence:    d.buffer[4],
		},
		Message:   msg,
		CRC:       d.crc,
		Timestamp: now,
	}, nil
}

// FrameReader reads frames from a byte stream.
type FrameReader struct {
	r   io.Reader
	dec *Decoder
	buf []byte
	pos int
	n   int
}

// NewFrameReader wraps r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, dec: NewDecoder(), buf: make([]byte, 256)}
}

// ReadFrame returns the next frame. Malformed frames are returned as errors
// and reading may continue; io errors from the underlying reader are
// returned wrapped and end the stream.
func (fr *FrameReader) ReadFrame() (*Frame, error) {
	for {
		for fr.pos < fr.n {
			b := fr.buf[fr.pos]
			fr.pos++
			f, err := fr.dec.DecodeByte(b)
			if err != nil {
				return nil, &DecodeError{Err: err}
			}
			if f != nil {
				return f, nil
			}
		}
		n, err := fr.r.Read(fr.buf)
		fr.pos, fr.n = 0, n
		if n == 0 && err != nil {
			return nil, errors.Wrap(err, "read frame")
		}
	}
}

// DecodeError marks a malformed frame; the stream itself is still usable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode frame: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
