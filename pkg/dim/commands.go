// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

// Command builder functions create Packet structs ready for encoding.
// These are convenience wrappers around NewPacket that pin the mode
// (and, for EEPROM commands, the channel) to the correct field values.

// NewLoad creates a mode-0 frame: load the channel's holding register
// without updating its output. A later update frame (mode 1 on the
// channel, or mode 2 on any channel) makes the value take effect.
func NewLoad(channel uint8, value uint16) Packet {
	return NewPacket(value, channel, ModeLoad)
}

// NewUpdate creates a mode-1 frame: load the channel's holding
// register and update that channel's output immediately.
func NewUpdate(channel uint8, value uint16) Packet {
	return NewPacket(value, channel, ModeUpdate)
}

// NewUpdateAll creates a mode-2 frame: load the channel's holding
// register and update every channel's output from its holding register
// in the same instant. Used as the final frame of a multi-axis move so
// all axes land together.
func NewUpdateAll(channel uint8, value uint16) Packet {
	return NewPacket(value, channel, ModeUpdateAll)
}

// NewInitialize creates an INITIALIZE command frame. The module
// reloads its setpoints from EEPROM and echoes one frame per channel
// so the host can resynchronize its view.
func NewInitialize() Packet {
	return NewPacket(0, ChannelCommand, CmdInitialize)
}

// NewSave creates a SAVE command frame. The module persists its
// current setpoints to EEPROM; they become the power-on defaults.
// Saving is idempotent.
func NewSave() Packet {
	return NewPacket(0, ChannelCommand, CmdSave)
}
