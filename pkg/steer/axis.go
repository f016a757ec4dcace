// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"fmt"
	"strings"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

// Axis identifies one steered DAC output. An axis number doubles as
// its protocol channel address.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisC
	AxisD
	NumAxes
)

// Channel returns the protocol channel address for the axis
func (a Axis) Channel() uint8 {
	return uint8(a)
}

// String returns the lowercase axis letter
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisC:
		return "c"
	case AxisD:
		return "d"
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// ParseAxis parses an axis from a letter (x, y, c, d) or a DAC channel
// number (0-3)
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "0":
		return AxisX, nil
	case "y", "1":
		return AxisY, nil
	case "c", "2":
		return AxisC, nil
	case "d", "3":
		return AxisD, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want x, y, c, d or 0-3)", s)
}

// AllAxes returns the four DAC axes in channel order
func AllAxes() []Axis {
	return []Axis{AxisX, AxisY, AxisC, AxisD}
}

// clampValue saturates a float to the 16-bit DAC range
func clampValue(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= float64(dim.ValueMax) {
		return dim.ValueMax
	}
	return uint16(v)
}
