// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"math"
	"sync"
	"time"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

// Source computes successive targets for one axis. Sources only
// produce numbers; they never talk to the link. A driver samples the
// source periodically and stores the result in the axis's TargetCell.
type Source interface {
	Target(elapsed time.Duration) uint16
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(elapsed time.Duration) uint16

// Target implements Source
func (f SourceFunc) Target(elapsed time.Duration) uint16 {
	return f(elapsed)
}

// SineSource sweeps an axis sinusoidally about the mechanical center.
// Amplitude is a fraction of half scale: 1.0 swings rail to rail, 0
// holds the center. Out-of-range amplitudes are clamped.
type SineSource struct {
	Frequency float64 // Hz
	Amplitude float64 // 0..1
}

// Target returns the sweep position at the given time since start
func (s SineSource) Target(elapsed time.Duration) uint16 {
	amplitude := s.Amplitude
	if amplitude < 0 {
		amplitude = 0
	}
	if amplitude > 1 {
		amplitude = 1
	}
	swing := amplitude * float64(dim.ValueCenter)
	v := float64(dim.ValueCenter) + swing*math.Sin(2*math.Pi*s.Frequency*elapsed.Seconds())
	return clampValue(v)
}

// DefaultQuadGain is the position loop gain applied to relative
// quadrant imbalance
const DefaultQuadGain = 500

// QuadCellSource closes a steering loop around a four-quadrant
// photodiode. Each set of readings nudges the beam position against
// the measured imbalance; with the beam centered on the cell the
// imbalance, and therefore the correction, is zero.
//
// Quadrant order follows the detector head: A and B share the +x
// half, A and C share the +y half.
type QuadCellSource struct {
	mu   sync.Mutex
	gain float64
	x    uint16
	y    uint16
}

// NewQuadCellSource creates a source starting from the mechanical
// center. A gain of 0 selects DefaultQuadGain.
func NewQuadCellSource(gain float64) *QuadCellSource {
	if gain == 0 {
		gain = DefaultQuadGain
	}
	return &QuadCellSource{
		gain: gain,
		x:    dim.ValueCenter,
		y:    dim.ValueCenter,
	}
}

// Observe folds one set of quadrant intensities into the steering
// position. All-dark readings (sum zero) leave the position alone.
func (q *QuadCellSource) Observe(a, b, c, d float64) {
	sum := a + b + c + d
	if sum == 0 {
		return
	}
	xrel := (a + b - c - d) / sum
	yrel := (a + c - b - d) / sum

	q.mu.Lock()
	q.x = clampPos(int(q.x) - int(xrel*q.gain))
	q.y = clampPos(int(q.y) - int(yrel*q.gain))
	q.mu.Unlock()
}

// Position returns the current steering targets
func (q *QuadCellSource) Position() (x, y uint16) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.x, q.y
}

// XSource returns a Source view of the x steering target
func (q *QuadCellSource) XSource() Source {
	return SourceFunc(func(time.Duration) uint16 {
		x, _ := q.Position()
		return x
	})
}

// YSource returns a Source view of the y steering target
func (q *QuadCellSource) YSource() Source {
	return SourceFunc(func(time.Duration) uint16 {
		_, y := q.Position()
		return y
	})
}

// clampPos saturates an int position to the 16-bit DAC range
func clampPos(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > dim.ValueMax {
		return dim.ValueMax
	}
	return uint16(v)
}
