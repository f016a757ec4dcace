// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import "sync/atomic"

const armedBit = 1 << 16

// TargetCell is a single-slot, last-write-wins mailbox for one axis
// target. Setpoint sources store into it at their own cadence; the
// move driver reads whatever is newest at its next tick. There is no
// queue and no backpressure: an overwritten target was already stale.
type TargetCell struct {
	slot atomic.Uint32 // armedBit | target value
}

// Store replaces the pending target
func (c *TargetCell) Store(value uint16) {
	c.slot.Store(armedBit | uint32(value))
}

// Load returns the pending target and whether one is armed. The
// target stays armed across reads; a slewed move needs it again every
// tick until the axis arrives.
func (c *TargetCell) Load() (uint16, bool) {
	v := c.slot.Load()
	return uint16(v), v&armedBit != 0
}

// Clear disarms the cell, e.g. when an axis animation stops
func (c *TargetCell) Clear() {
	c.slot.Store(0)
}

// Targets groups one cell per DAC axis
type Targets struct {
	cells [NumAxes]TargetCell
}

// NewTargets creates a group with every cell disarmed
func NewTargets() *Targets {
	return &Targets{}
}

// Cell returns the cell for an axis
func (t *Targets) Cell(axis Axis) *TargetCell {
	return &t.cells[axis]
}

// Store arms the axis's cell with value
func (t *Targets) Store(axis Axis, value uint16) {
	t.cells[axis].Store(value)
}

// Snapshot returns the armed targets as a map ready for MoveToTarget.
// Disarmed axes are absent.
func (t *Targets) Snapshot() map[Axis]uint16 {
	targets := make(map[Axis]uint16, NumAxes)
	for axis := Axis(0); axis < NumAxes; axis++ {
		if value, ok := t.cells[axis].Load(); ok {
			targets[axis] = value
		}
	}
	return targets
}
