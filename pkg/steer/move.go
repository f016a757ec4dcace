// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

// DefaultStepSize is the largest per-tick change the move controller
// applies to any axis. Slew limiting keeps the mirror's drive within
// its mechanical slew rating; full scale takes 257 ticks.
const DefaultStepSize = 0xFF

// mover tracks the commanded position of each axis and computes
// slew-limited steps toward requested targets. Positions are the
// host's belief about the module, fed only by emitted frames or an
// explicit reseed.
type mover struct {
	step uint16
	pos  [NumAxes]uint16
}

func newMover(step uint16) mover {
	if step == 0 {
		step = DefaultStepSize
	}
	return mover{step: step}
}

// axisStep is one axis's movement within a tick
type axisStep struct {
	axis  Axis
	value uint16
}

// advance steps every targeted axis toward its target, clamped to the
// step size, and returns the steps taken in axis order. Axes absent
// from targets and axes already on target contribute nothing.
func (m *mover) advance(targets map[Axis]uint16) []axisStep {
	var steps []axisStep
	for axis := Axis(0); axis < NumAxes; axis++ {
		target, ok := targets[axis]
		if !ok || m.pos[axis] == target {
			continue
		}
		next := stepToward(m.pos[axis], target, m.step)
		m.pos[axis] = next
		steps = append(steps, axisStep{axis: axis, value: next})
	}
	return steps
}

// offTarget reports whether any targeted axis still differs from its
// target
func (m *mover) offTarget(targets map[Axis]uint16) bool {
	for axis, target := range targets {
		if axis < NumAxes && m.pos[axis] != target {
			return true
		}
	}
	return false
}

// stepToward moves current toward target by at most step, landing
// exactly on target rather than overshooting
func stepToward(current, target, step uint16) uint16 {
	if target > current {
		if target-current <= step {
			return target
		}
		return current + step
	}
	if current-target <= step {
		return target
	}
	return current - step
}
