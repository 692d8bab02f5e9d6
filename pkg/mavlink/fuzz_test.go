// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mavlink

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomMessage builds a message with a known or made-up type and 0-9
// fields of random scalar types.
func randomMessage(rng *rand.Rand) Message {
	var msgType string
	if rng.Intn(2) == 0 {
		msgType = MissionMessageTypes[rng.Intn(len(MissionMessageTypes))]
	} else {
		msgType = fmt.Sprintf("FUZZ_%d", rng.Intn(1000))
	}

	fields := make(map[string]interface{})
	for i := rng.Intn(10); i > 0; i-- {
		key := fmt.Sprintf("f%d", rng.Intn(10))
		switch rng.Intn(5) {
		case 0:
			fields[key] = rng.Uint64()
		case 1:
			fields[key] = -rng.Int63()
		case 2:
			fields[key] = rng.Float64()
		case 3:
			fields[key] = rng.Intn(2) == 1
		case 4:
			fields[key] = Enum(fmt.Sprintf("ENUM_%d", rng.Intn(10)))
		}
	}
	return NewMessage(msgType, fields)
}

func randomHeader(rng *rand.Rand) Header {
	return Header{
		SystemID:    uint8(rng.Intn(256)),
		ComponentID: uint8(rng.Intn(256)),
		Sequence:    uint8(rng.Intn(256)),
	}
}

// unstuffedFrame returns the frame body (length through CRC) for m
// without byte stuffing or framing.
func unstuffedFrame(t *testing.T, h Header, m Message) []byte {
	t.Helper()
	payload, err := cbor.Marshal(m.Flatten())
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data := make([]byte, LengthSize, LengthSize+HeaderSize+len(payload)+2)
	binary.LittleEndian.PutUint16(data, uint16(len(payload)))
	data = append(data, h.SystemID, h.ComponentID, h.Sequence)
	data = append(data, payload...)
	crc := CalculateCRC(data)
	return append(data, byte(crc>>8), byte(crc))
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_RandomFrames builds frames byte by byte with random
// headers and payloads and checks they decode to what was sent
func TestFuzzDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		h := randomHeader(rng)
		m := randomMessage(rng)

		d.DecodeByte(StartByte)
		for _, b := range unstuffedFrame(t, h, m) {
			feedByteWithStuffing(d, b)
		}
		f, err := d.DecodeByte(EndByte)

		if err != nil {
			t.Errorf("Round %d: unexpected decode error: %v", i, err)
			continue
		}
		if f == nil {
			t.Errorf("Round %d: expected frame, got nil", i)
			continue
		}
		if f.Header != h {
			t.Errorf("Round %d: header mismatch: expected %+v, got %+v", i, h, f.Header)
		}
		if f.Message.Type != m.Type {
			t.Errorf("Round %d: type mismatch: expected %s, got %s", i, m.Type, f.Message.Type)
		}
		if len(f.Message.Fields) != len(m.Fields) {
			t.Errorf("Round %d: field count mismatch: expected %d, got %d", i, len(m.Fields), len(f.Message.Fields))
		}
		if FormatMessage(f.Message) == "" {
			t.Errorf("Round %d: FormatMessage returned empty string", i)
		}
	}
}

// TestFuzzEncoder_RoundTrip encodes random envelopes and decodes them
// back through a stream of back-to-back frames
func TestFuzzEncoder_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		env := Envelope{Header: randomHeader(rng), Message: randomMessage(rng)}
		data, err := EncodeFrame(env)
		if err != nil {
			t.Fatalf("Round %d: EncodeFrame error: %v", i, err)
		}

		var got *Frame
		for _, b := range data {
			f, err := d.DecodeByte(b)
			if err != nil {
				t.Fatalf("Round %d: decode error: %v", i, err)
			}
			if f != nil {
				got = f
			}
		}
		if got == nil {
			t.Fatalf("Round %d: no frame decoded", i)
		}
		if got.Header != env.Header || got.Message.Type != env.Message.Type {
			t.Errorf("Round %d: got %+v %s, want %+v %s", i, got.Header, got.Message.Type, env.Header, env.Message.Type)
		}
	}
}

// TestFuzzDecoder_CorruptedFrames flips a random byte inside valid frames
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		// Without stuffing for simplicity
		frame := append([]byte{StartByte}, unstuffedFrame(t, randomHeader(rng), randomMessage(rng))...)
		frame = append(frame, EndByte)

		corruptIdx := rng.Intn(len(frame)-2) + 1 // Skip START and END
		frame[corruptIdx] ^= byte(rng.Intn(255) + 1)

		for _, b := range frame {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_MissingBytes drops random bytes from valid frames
func TestFuzzDecoder_MissingBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		frame, err := EncodeFrame(Envelope{Header: randomHeader(rng), Message: randomMessage(rng)})
		if err != nil {
			t.Fatalf("Round %d: EncodeFrame error: %v", i, err)
		}

		numToRemove := rng.Intn(5) + 1
		for j := 0; j < numToRemove && len(frame) > 2; j++ {
			idx := rng.Intn(len(frame))
			frame = append(frame[:idx], frame[idx+1:]...)
		}

		for _, b := range frame {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_ExtraBytes inserts random bytes into valid frames
func TestFuzzDecoder_ExtraBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		frame, err := EncodeFrame(Envelope{Header: randomHeader(rng), Message: randomMessage(rng)})
		if err != nil {
			t.Fatalf("Round %d: EncodeFrame error: %v", i, err)
		}

		numToInsert := rng.Intn(5) + 1
		for j := 0; j < numToInsert; j++ {
			idx := rng.Intn(len(frame) + 1)
			frame = append(frame[:idx], append([]byte{byte(rng.Intn(256))}, frame[idx:]...)...)
		}

		for _, b := range frame {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_RepeatedStart checks that runs of START bytes do not
// prevent the following frame from decoding
func TestFuzzDecoder_RepeatedStart(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	frame, err := EncodeFrame(Envelope{Header: GCSHeader(), Message: NewMissionRequestList(DefaultTarget)})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		numStarts := rng.Intn(100) + 1
		for j := 0; j < numStarts; j++ {
			d.DecodeByte(StartByte)
		}

		var got *Frame
		for _, b := range frame {
			f, err := d.DecodeByte(b)
			if err != nil {
				t.Errorf("Round %d: unexpected error after repeated START: %v", i, err)
			}
			if f != nil {
				got = f
			}
		}
		if got == nil || got.Message.Type != MsgMissionRequestList {
			t.Errorf("Round %d: expected valid frame after repeated START", i)
		}
	}
}

// ============================================================
// CRC Fuzz Tests
// ============================================================

// TestFuzzCRC_RandomData tests CRC calculation with random data
func TestFuzzCRC_RandomData(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(1000) + 1
		data := make([]byte, length)
		rng.Read(data)

		crc1 := CalculateCRC(data)
		crc2 := CalculateCRC(data)
		if crc1 != crc2 {
			t.Errorf("Round %d: CRC not deterministic: 0x%04X != 0x%04X", i, crc1, crc2)
		}

		idx := rng.Intn(len(data))
		data[idx] ^= byte(rng.Intn(255) + 1)
		if CalculateCRC(data) == crc1 {
			// Collisions are possible, just rare
			t.Logf("Round %d: CRC collision detected (rare but possible)", i)
		}
	}
}

// ============================================================
// Helper Functions
// ============================================================

// feedByteWithStuffing sends a byte to the decoder with proper byte stuffing
func feedByteWithStuffing(d *Decoder, b byte) {
	if b == StartByte || b == EndByte || b == EscByte {
		d.DecodeByte(EscByte)
		d.DecodeByte(b ^ EscXor)
	} else {
		d.DecodeByte(b)
	}
}
