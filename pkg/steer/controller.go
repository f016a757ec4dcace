// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

// Package steer drives a fast-steering-mirror Digital Interface Module
// over a DIM byte link: it serializes outbound frames, decodes the
// inbound stream into a channel table, and slews multi-axis moves so
// the mirror never sees a step larger than its drive can follow.
package steer

import (
	"sync"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

// Display receives synchronous notifications from a Controller: every
// channel table update (decoded or sent) and an echo of every frame
// written to the link. Implementations must return quickly and must
// not call back into the Controller.
type Display interface {
	ChannelUpdated(channel uint8, value uint16)
	PacketSent(packet dim.Packet)
}

// Options configures a Controller. The zero value is usable: default
// step size, tolerant decoding, no notifications.
type Options struct {
	StepSize     uint16  // per-tick slew limit, DefaultStepSize when 0
	Strict       bool    // strict inbound frame validation
	Display      Display // optional notification sink
	OnInitialize func()  // called when an INITIALIZE echo is decoded
	OnSave       func()  // called when a SAVE echo is decoded
}

// Controller owns one DIM link end to end: the write path, the read
// path, the channel table, and the move state.
//
// Writes are serialized so every three-byte frame reaches the wire
// contiguously; concurrent senders interleave at frame boundaries
// only. Reads never block: Drain consumes whatever the transport has
// buffered and nothing more. A Controller without a transport is
// inert, not broken: sends and drains become no-ops until a link is
// attached, and a failed write detaches the link rather than erroring
// every caller that follows.
type Controller struct {
	table *ChannelTable
	stats *dim.Statistics

	display      Display
	onInitialize func()
	onSave       func()

	trMu sync.Mutex
	tr   Transport

	writeMu sync.Mutex
	mover   mover

	readMu  sync.Mutex
	decoder *dim.Decoder
	readBuf []byte
}

// NewController creates a controller for the given transport, which
// may be nil to start detached
func NewController(tr Transport, opts Options) *Controller {
	decoder := dim.NewDecoder()
	if opts.Strict {
		decoder = dim.NewStrictDecoder()
	}
	c := &Controller{
		table:        NewChannelTable(),
		stats:        dim.NewStatistics(),
		display:      opts.Display,
		onInitialize: opts.OnInitialize,
		onSave:       opts.OnSave,
		tr:           tr,
		mover:        newMover(opts.StepSize),
		decoder:      decoder,
		readBuf:      make([]byte, 256),
	}
	if opts.Display != nil {
		c.table.Subscribe(opts.Display.ChannelUpdated)
	}
	return c
}

// Table returns the controller's channel table
func (c *Controller) Table() *ChannelTable {
	return c.table
}

// Stats returns the controller's statistics tracker
func (c *Controller) Stats() *dim.Statistics {
	return c.stats
}

// Attach connects a transport, replacing any existing one. Decoder
// frame state is reset: a new link starts at an unknown byte phase.
func (c *Controller) Attach(tr Transport) {
	c.readMu.Lock()
	c.decoder.Reset()
	c.readMu.Unlock()

	c.trMu.Lock()
	c.tr = tr
	c.trMu.Unlock()
}

// Detach disconnects the transport. Subsequent sends and drains are
// no-ops.
func (c *Controller) Detach() {
	c.trMu.Lock()
	c.tr = nil
	c.trMu.Unlock()
}

// Attached reports whether a transport is connected
func (c *Controller) Attached() bool {
	return c.transport() != nil
}

func (c *Controller) transport() Transport {
	c.trMu.Lock()
	defer c.trMu.Unlock()
	return c.tr
}

// detachFailed drops tr if it is still the active transport. Failed
// links are abandoned, not retried; the operator reattaches.
func (c *Controller) detachFailed(tr Transport) {
	c.trMu.Lock()
	if c.tr == tr {
		c.tr = nil
	}
	c.trMu.Unlock()
}

// Send encodes one frame and writes it to the link. The write happens
// under the controller's write lock as a single three-byte call, so
// frames from concurrent senders never interleave mid-frame. Send
// reports whether the frame went out; with no transport attached it
// is a quiet no-op.
func (c *Controller) Send(value uint16, channel, mode uint8) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sendLocked(value, channel, mode)
}

func (c *Controller) sendLocked(value uint16, channel, mode uint8) bool {
	tr := c.transport()
	if tr == nil {
		return false
	}

	packet := dim.NewPacket(value, channel, mode)
	frame := packet.Frame()
	if _, err := tr.Write(frame[:]); err != nil {
		c.stats.RecordWriteFailure()
		c.detachFailed(tr)
		return false
	}

	c.stats.RecordSent(packet)
	if !packet.IsCommand() {
		c.table.Set(packet.Channel(), packet.Value())
	}
	if c.display != nil {
		c.display.PacketSent(packet)
	}
	return true
}

// Set loads value into the axis channel with an immediate per-channel
// update, bypassing slew limiting, and reseeds the move controller's
// position for that axis. This is the direct "slider" path; use
// MoveToTarget for rate-limited motion.
func (c *Controller) Set(axis Axis, value uint16) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.sendLocked(value, axis.Channel(), dim.ModeUpdate) {
		return false
	}
	c.mover.pos[axis] = value
	return true
}

// Center drives the given axes (all four when none are named) to
// mid-scale with immediate updates
func (c *Controller) Center(axes ...Axis) bool {
	if len(axes) == 0 {
		axes = AllAxes()
	}
	ok := true
	for _, axis := range axes {
		if !c.Set(axis, dim.ValueCenter) {
			ok = false
		}
	}
	return ok
}

// Initialize asks the module to reload its setpoints from EEPROM. The
// module echoes one frame per DAC channel; the echoes arrive through
// Drain and refresh the channel table.
func (c *Controller) Initialize() bool {
	return c.Send(0, dim.ChannelCommand, dim.CmdInitialize)
}

// Save asks the module to persist its current setpoints to EEPROM as
// the new power-on defaults. Saving twice changes nothing.
func (c *Controller) Save() bool {
	return c.Send(0, dim.ChannelCommand, dim.CmdSave)
}

// Position returns the move controller's commanded value for an axis
func (c *Controller) Position(axis Axis) uint16 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.mover.pos[axis]
}

// SetPosition reseeds the move controller's belief about an axis
// without emitting anything, e.g. to start a drawing pass from the
// center after the axis was centered out of band
func (c *Controller) SetPosition(axis Axis, value uint16) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mover.pos[axis] = value
}

// MoveToTarget advances every targeted axis one slew-limited step and
// emits the move's frames. When several axes step in the same tick,
// all but the last frame carry load mode and the last carries
// update-all, so the axes land simultaneously; a lone stepping axis
// gets an immediate per-channel update instead. Returns true while
// any targeted axis remains off target, i.e. the caller should keep
// ticking.
//
// With no transport attached nothing is emitted and positions hold
// still; the tick is a no-op that reports the move as still pending.
func (c *Controller) MoveToTarget(targets map[Axis]uint16) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.transport() == nil {
		return c.mover.offTarget(targets)
	}

	steps := c.mover.advance(targets)
	switch len(steps) {
	case 0:
		// Every targeted axis already sits on target.
	case 1:
		c.sendLocked(steps[0].value, steps[0].axis.Channel(), dim.ModeUpdate)
	default:
		for _, step := range steps[:len(steps)-1] {
			c.sendLocked(step.value, step.axis.Channel(), dim.ModeLoad)
		}
		last := steps[len(steps)-1]
		c.sendLocked(last.value, last.axis.Channel(), dim.ModeUpdateAll)
	}

	return c.mover.offTarget(targets)
}

// Drain consumes every byte the transport has buffered and returns
// the packets completed by those bytes, in arrival order. Decoded
// data frames refresh the channel table; command echoes fire the
// configured hooks and leave the table alone. Drain never blocks and
// returns nil when no transport is attached. A transport whose read
// side has failed is detached once its buffered backlog is consumed,
// so link loss surfaces even on a link the host never writes to.
func (c *Controller) Drain() []dim.Packet {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	tr := c.transport()
	if tr == nil {
		return nil
	}

	var packets []dim.Packet
	for {
		avail := tr.Available()
		if avail == 0 {
			// An empty non-blocking read surfaces a terminal link
			// error; a healthy idle link returns (0, nil).
			if _, err := tr.Read(c.readBuf[:0]); err != nil {
				c.detachFailed(tr)
			}
			break
		}
		if avail > len(c.readBuf) {
			avail = len(c.readBuf)
		}
		n, err := tr.Read(c.readBuf[:avail])
		for _, b := range c.readBuf[:n] {
			if packet, ok := c.decoder.DecodeByte(b); ok {
				c.handleInbound(packet)
				packets = append(packets, packet)
			}
		}
		if err != nil {
			c.detachFailed(tr)
			break
		}
	}

	c.stats.SetResyncBytes(c.decoder.ResyncBytes())
	c.stats.SetLaxContinuations(c.decoder.LaxContinuations())
	return packets
}

// handleInbound routes one decoded packet: commands dispatch to their
// hooks, everything else lands in the channel table
func (c *Controller) handleInbound(packet dim.Packet) {
	c.stats.RecordDecode(packet, dim.ValidatePacket(packet))

	if packet.IsCommand() {
		switch packet.Mode() {
		case dim.CmdInitialize:
			if c.onInitialize != nil {
				c.onInitialize()
			}
		case dim.CmdSave:
			if c.onSave != nil {
				c.onSave()
			}
		}
		// Unknown commands are ignored; the command channel never
		// touches the table.
		return
	}

	c.table.Set(packet.Channel(), packet.Value())
}
