// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

// Encode packs a 16-bit value, a channel address, and a mode into a
// three-byte DIM frame.
//
// Byte 0 has the high bit clear and carries the channel, the mode, and
// value bits 15-14. Bytes 1 and 2 have the high bit set and carry
// value bits 13-7 and 6-0. The channel is masked to three bits and the
// mode to two; no other input can fail to encode.
func Encode(value uint16, channel, mode uint8) [FrameSize]byte {
	var frame [FrameSize]byte
	frame[0] = byte(value>>14)&valueHighMask |
		(channel&ChannelMask)<<channelShift |
		(mode&ModeMask)<<modeShift
	frame[1] = byte(value>>7)&continuationMax | syncMask
	frame[2] = byte(value)&continuationMax | syncMask
	return frame
}

// AppendFrame appends the three-byte encoding of (value, channel, mode)
// to dst and returns the extended slice.
func AppendFrame(dst []byte, value uint16, channel, mode uint8) []byte {
	frame := Encode(value, channel, mode)
	return append(dst, frame[:]...)
}
