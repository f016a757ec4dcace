// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package dim

// Decoder reassembles DIM frames from a raw byte stream.
//
// The stream is self-synchronizing: only a byte with the high bit
// clear can start a frame, so after garbage or a partial frame the
// decoder locks back on at the next frame boundary, losing at most one
// frame. Decoder state persists across calls; a single Decoder must
// own a given stream.
//
// By default the decoder accepts the second and third byte of a frame
// without checking their high bits, matching the tolerant behavior of
// the module's firmware. A strict decoder instead abandons the partial
// frame when a start-of-frame byte arrives mid-frame and treats that
// byte as the start of a new frame.
type Decoder struct {
	state  int
	frame  [FrameSize]byte
	strict bool

	resyncBytes      uint64
	laxContinuations uint64
	rejectedFrames   uint64
}

// NewDecoder creates a decoder in the default, tolerant mode
func NewDecoder() *Decoder {
	return &Decoder{state: stateAwaitSync}
}

// NewStrictDecoder creates a decoder that rejects continuation bytes
// with the high bit clear instead of accepting them
func NewStrictDecoder() *Decoder {
	return &Decoder{state: stateAwaitSync, strict: true}
}

// DecodeByte feeds one byte to the decoder. It returns the completed
// packet and true when b finishes a frame, and the zero Packet and
// false otherwise. It never fails: bytes that cannot extend a frame
// are discarded (or, in strict mode, restart one) and counted.
func (d *Decoder) DecodeByte(b byte) (Packet, bool) {
	switch d.state {
	case stateAwaitSync:
		if b&syncMask != 0 {
			d.resyncBytes++
			return Packet{}, false
		}
		d.frame[0] = b
		d.state = stateHaveFirst
		return Packet{}, false

	case stateHaveFirst:
		if !d.acceptContinuation(b) {
			return Packet{}, false
		}
		d.frame[1] = b
		d.state = stateHaveSecond
		return Packet{}, false

	case stateHaveSecond:
		if !d.acceptContinuation(b) {
			return Packet{}, false
		}
		d.frame[2] = b
		d.state = stateAwaitSync
		return DecodeFrame(d.frame), true
	}

	// Unreachable unless the state was corrupted; resynchronize.
	d.Reset()
	return Packet{}, false
}

// acceptContinuation decides whether b may occupy a continuation slot.
// In strict mode a start-of-frame byte mid-frame abandons the partial
// frame and begins a new one with b as its first byte.
func (d *Decoder) acceptContinuation(b byte) bool {
	if b&syncMask != 0 {
		return true
	}
	if !d.strict {
		d.laxContinuations++
		return true
	}
	d.rejectedFrames++
	d.frame[0] = b
	d.state = stateHaveFirst
	return false
}

// Feed decodes every byte of data in order and returns the packets
// completed by those bytes. Partial frame state carries over to the
// next call, so frames split across reads decode normally.
func (d *Decoder) Feed(data []byte) []Packet {
	var packets []Packet
	for _, b := range data {
		if packet, ok := d.DecodeByte(b); ok {
			packets = append(packets, packet)
		}
	}
	return packets
}

// Reset discards any partially assembled frame and returns the decoder
// to the hunting state. Counters are preserved.
func (d *Decoder) Reset() {
	d.state = stateAwaitSync
}

// ResyncBytes returns the number of bytes discarded while hunting for
// a frame start
func (d *Decoder) ResyncBytes() uint64 {
	return d.resyncBytes
}

// LaxContinuations returns the number of continuation bytes accepted
// despite a clear high bit (tolerant mode only)
func (d *Decoder) LaxContinuations() uint64 {
	return d.laxContinuations
}

// RejectedFrames returns the number of partial frames abandoned by a
// strict decoder
func (d *Decoder) RejectedFrames() uint64 {
	return d.rejectedFrames
}

// DecodeFrame extracts the channel, mode, and value from a three-byte
// frame. It is the pure inverse of Encode: framing bits are ignored,
// so it assumes the caller aligned the frame correctly.
func DecodeFrame(frame [FrameSize]byte) Packet {
	value := uint16(frame[0]&valueHighMask)<<14 |
		uint16(frame[1]&continuationMax)<<7 |
		uint16(frame[2]&continuationMax)
	channel := frame[0] >> channelShift & ChannelMask
	mode := frame[0] >> modeShift & ModeMask
	return NewPacket(value, channel, mode)
}
