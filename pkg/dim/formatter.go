// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

import "fmt"

// FormatPacket formats a packet into a human-readable line, newline
// included, so callers can fmt.Print the result directly
func FormatPacket(p Packet) string {
	timestamp := p.Timestamp().Format("15:04:05.000")
	frame := p.Frame()

	if p.IsCommand() {
		return fmt.Sprintf("[%s] %02X %02X %02X  CMD %s\n",
			timestamp, frame[0], frame[1], frame[2], FormatCommand(p.Mode()))
	}

	return fmt.Sprintf("[%s] %02X %02X %02X  ch%d %-14s %s  0x%04X (%d)\n",
		timestamp, frame[0], frame[1], frame[2],
		p.Channel(), FormatChannel(p.Channel()), FormatMode(p.Mode()),
		p.Value(), p.Value())
}

// FormatChannel returns the human-readable name for a channel address
func FormatChannel(channel uint8) string {
	switch channel & ChannelMask {
	case ChannelX:
		return "X DAC"
	case ChannelY:
		return "Y DAC"
	case ChannelC:
		return "C DAC"
	case ChannelD:
		return "D DAC"
	case ChannelP1:
		return "Xpos / P1 ADC"
	case ChannelP2:
		return "Ypos / P2 ADC"
	case ChannelP3:
		return "Xerr / P3 ADC"
	case ChannelCommand:
		return "COMMAND"
	}
	return "UNKNOWN"
}

// FormatMode returns the human-readable name for an analog-channel mode
func FormatMode(mode uint8) string {
	switch mode & ModeMask {
	case ModeLoad:
		return "LOAD"
	case ModeUpdate:
		return "UPDATE"
	case ModeUpdateAll:
		return "UPDATE_ALL"
	case ModeReserved:
		return "RESERVED"
	}
	return "UNKNOWN"
}

// FormatCommand returns the human-readable name for a command-channel
// command (the mode field of a channel-7 frame)
func FormatCommand(command uint8) string {
	switch command & ModeMask {
	case CmdInitialize:
		return "INITIALIZE"
	case CmdSave:
		return "SAVE"
	}
	return fmt.Sprintf("UNKNOWN (%d)", command&ModeMask)
}

// FormatFrame formats raw frame bytes as spaced hex
func FormatFrame(frame [FrameSize]byte) string {
	return fmt.Sprintf("%02X %02X %02X", frame[0], frame[1], frame[2])
}
