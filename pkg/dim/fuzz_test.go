// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
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

// randomPacketFields returns a random (value, channel, mode) triple
func randomPacketFields(rng *rand.Rand) (uint16, uint8, uint8) {
	return uint16(rng.Intn(0x10000)), uint8(rng.Intn(ChannelCount)), uint8(rng.Intn(ModeMask + 1))
}

// ============================================================
// Round-Trip Fuzz Tests
// ============================================================

func TestFuzz_EncodeDecodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		value, channel, mode := randomPacketFields(rng)
		frame := Encode(value, channel, mode)

		packets := d.Feed(frame[:])
		if len(packets) != 1 {
			t.Fatalf("round %d: expected 1 packet, got %d", i, len(packets))
		}
		packet := packets[0]
		if packet.Value() != value || packet.Channel() != channel || packet.Mode() != mode {
			t.Fatalf("round %d: (0x%04X, %d, %d) decoded as (0x%04X, %d, %d)",
				i, value, channel, mode, packet.Value(), packet.Channel(), packet.Mode())
		}
	}
}

func TestFuzz_RandomBytesNeverPanic(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for _, d := range []*Decoder{NewDecoder(), NewStrictDecoder()} {
		for i := 0; i < rounds; i++ {
			chunk := make([]byte, rng.Intn(64))
			rng.Read(chunk)
			d.Feed(chunk) // must never panic, packets are incidental
		}
	}
}

func TestFuzz_ResyncAfterCorruption(t *testing.T) {
	// Inject random garbage between valid frames. Whatever the
	// garbage, the decoder must recover and decode the frame that
	// follows a quiet gap exactly.
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		garbage := make([]byte, 1+rng.Intn(16))
		for j := range garbage {
			garbage[j] = byte(rng.Intn(256)) | 0x80 // continuation-shaped noise
		}
		d.Feed(garbage)

		value, channel, mode := randomPacketFields(rng)
		frame := Encode(value, channel, mode)
		packets := d.Feed(frame[:])

		if len(packets) != 1 {
			t.Fatalf("round %d: decoder did not recover, got %d packets", i, len(packets))
		}
		if packets[0].Value() != value || packets[0].Channel() != channel || packets[0].Mode() != mode {
			t.Fatalf("round %d: recovered packet (0x%04X, %d, %d), expected (0x%04X, %d, %d)",
				i, packets[0].Value(), packets[0].Channel(), packets[0].Mode(), value, channel, mode)
		}
	}
}

func TestFuzz_StreamSplitInvariance(t *testing.T) {
	// A frame stream fed in random-size chunks decodes to the same
	// packet sequence as the stream fed whole.
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		frameCount := 1 + rng.Intn(20)
		var stream []byte
		type fields struct {
			value   uint16
			channel uint8
			mode    uint8
		}
		expected := make([]fields, 0, frameCount)
		for j := 0; j < frameCount; j++ {
			value, channel, mode := randomPacketFields(rng)
			stream = AppendFrame(stream, value, channel, mode)
			expected = append(expected, fields{value, channel, mode})
		}

		d := NewDecoder()
		var packets []Packet
		for len(stream) > 0 {
			n := 1 + rng.Intn(len(stream))
			packets = append(packets, d.Feed(stream[:n])...)
			stream = stream[n:]
		}

		if len(packets) != frameCount {
			t.Fatalf("round %d: expected %d packets, got %d", i, frameCount, len(packets))
		}
		for j, packet := range packets {
			if packet.Value() != expected[j].value ||
				packet.Channel() != expected[j].channel ||
				packet.Mode() != expected[j].mode {
				t.Fatalf("round %d packet %d: (0x%04X, %d, %d), expected (0x%04X, %d, %d)",
					i, j, packet.Value(), packet.Channel(), packet.Mode(),
					expected[j].value, expected[j].channel, expected[j].mode)
			}
		}
	}
}

// ============================================================
// Validator Fuzz Tests
// ============================================================

func TestFuzz_ValidatorNeverPanics(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		value, channel, mode := randomPacketFields(rng)
		packet := NewPacket(value, channel, mode)
		for _, err := range ValidatePacket(packet) {
			if err.Error() == "" {
				t.Fatalf("round %d: empty validation message for (0x%04X, %d, %d)",
					i, value, channel, mode)
			}
		}
	}
}
