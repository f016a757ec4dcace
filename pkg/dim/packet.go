// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

import "time"

// Packet represents one decoded DIM frame: a channel address, a mode,
// and a 16-bit value. Packets are immutable once constructed.
type Packet struct {
	channel   uint8
	mode      uint8
	value     uint16
	timestamp time.Time
}

// NewPacket creates a packet with the given fields. The channel is
// masked to three bits and the mode to two, so a packet can never hold
// an unencodable combination.
func NewPacket(value uint16, channel, mode uint8) Packet {
	return Packet{
		channel:   channel & ChannelMask,
		mode:      mode & ModeMask,
		value:     value,
		timestamp: time.Now(),
	}
}

// Channel returns the packet's three-bit channel address
func (p Packet) Channel() uint8 {
	return p.channel
}

// Mode returns the packet's two-bit mode field
func (p Packet) Mode() uint8 {
	return p.mode
}

// Value returns the packet's 16-bit data value
func (p Packet) Value() uint16 {
	return p.value
}

// Timestamp returns when the packet was constructed or decoded
func (p Packet) Timestamp() time.Time {
	return p.timestamp
}

// IsCommand reports whether the packet is addressed to the command
// channel. Command packets carry a command in the mode field and their
// value field is ignored.
func (p Packet) IsCommand() bool {
	return p.channel == ChannelCommand
}

// Frame returns the three-byte wire encoding of the packet
func (p Packet) Frame() [FrameSize]byte {
	return Encode(p.value, p.channel, p.mode)
}
