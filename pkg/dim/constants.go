// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

// Package dim provides a Go implementation of the fast-steering-mirror
// Digital Interface Module (DIM) serial protocol.
//
// DIM is a fixed-length binary protocol: every frame is exactly three
// bytes, and the high bit of each byte doubles as a framing marker
// (clear on the first byte, set on the two continuation bytes). This
// package provides frame encoding/decoding, stream resynchronization,
// command construction, and value formatting.
package dim

// Frame layout
const (
	FrameSize = 3 // every DIM frame is exactly three bytes

	syncMask        = 0x80 // high bit: clear marks a frame start
	channelShift    = 4
	modeShift       = 2
	valueHighMask   = 0x03 // value bits 15-14, in byte 0
	continuationMax = 0x7F // low seven bits carried per continuation byte
)

// Field limits
const (
	ChannelMask  = 0x07 // channel address is three bits
	ModeMask     = 0x03 // mode is two bits
	ChannelCount = 8
)

// Channel addresses. Channels 0-3 are the DAC outputs, channels 4-6
// report the analog inputs, and channel 7 is the command channel.
const (
	ChannelX = 0 // X axis DAC
	ChannelY = 1 // Y axis DAC
	ChannelC = 2 // C axis DAC
	ChannelD = 3 // D axis DAC

	ChannelP1 = 4 // P1 ADC (X position)
	ChannelP2 = 5 // P2 ADC (Y position)
	ChannelP3 = 6 // P3 ADC (X error)

	ChannelCommand = 7 // command channel, never a real analog channel
)

// Modes for analog channels
const (
	ModeLoad      = 0 // load holding register only
	ModeUpdate    = 1 // load and update this channel's output
	ModeUpdateAll = 2 // load and update every channel synchronously
	ModeReserved  = 3 // reserved, unassigned
)

// Commands carried in the mode field of command-channel frames
const (
	CmdInitialize = 0 // reload setpoints from EEPROM, echo all channels
	CmdSave       = 1 // persist current setpoints to EEPROM
)

// Value range
const (
	ValueMax    = 0xFFFF // full scale
	ValueCenter = 0x7FFF // mid-scale, the mechanical center
)

// Link parameters. The DIM end of the link is fixed at 460800 baud,
// eight data bits, no parity, one stop bit.
const (
	DefaultBaudRate = 460800
)

// Decoder states
const (
	stateAwaitSync = iota // discarding bytes until a frame start appears
	stateHaveFirst        // first byte latched, awaiting second
	stateHaveSecond       // two bytes latched, awaiting third
)

// Direction classifies what a channel address refers to.
type Direction int

const (
	DirectionOutput  Direction = iota // DAC setpoint, host writes it
	DirectionInput                    // ADC reading, device reports it
	DirectionCommand                  // command channel
)

// ChannelDirection reports whether the channel is a DAC output, an ADC
// input, or the command channel. The channel is masked to three bits.
func ChannelDirection(channel uint8) Direction {
	switch channel & ChannelMask {
	case ChannelX, ChannelY, ChannelC, ChannelD:
		return DirectionOutput
	case ChannelCommand:
		return DirectionCommand
	default:
		return DirectionInput
	}
}
