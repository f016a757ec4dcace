// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import "fmt"

// Pattern is a cyclic sequence of (x, y) corner positions traced by
// the beam. The move controller slews between corners; a pattern only
// says where the next corner is.
type Pattern struct {
	name    string
	corners [][2]uint16
	index   int
}

// SquarePattern traces the perimeter of the full deflection range
func SquarePattern() *Pattern {
	return &Pattern{
		name: "square",
		corners: [][2]uint16{
			{0x0000, 0x0000},
			{0xFFFF, 0x0000},
			{0xFFFF, 0xFFFF},
			{0x0000, 0xFFFF},
		},
	}
}

// BowtiePattern crosses the diagonals between corner pairs
func BowtiePattern() *Pattern {
	return &Pattern{
		name: "bowtie",
		corners: [][2]uint16{
			{0x0000, 0x0000},
			{0x0000, 0xFFFF},
			{0xFFFF, 0x0000},
			{0xFFFF, 0xFFFF},
		},
	}
}

// PatternByName returns the named stock pattern
func PatternByName(name string) (*Pattern, error) {
	switch name {
	case "square":
		return SquarePattern(), nil
	case "bowtie":
		return BowtiePattern(), nil
	}
	return nil, fmt.Errorf("unknown pattern %q (want square or bowtie)", name)
}

// Name returns the pattern's name
func (p *Pattern) Name() string {
	return p.name
}

// Corner returns the current corner position
func (p *Pattern) Corner() (x, y uint16) {
	corner := p.corners[p.index]
	return corner[0], corner[1]
}

// Targets returns the current corner as a move-controller target map
func (p *Pattern) Targets() map[Axis]uint16 {
	x, y := p.Corner()
	return map[Axis]uint16{AxisX: x, AxisY: y}
}

// Advance moves to the next corner and reports whether the pattern
// wrapped around to its first corner, i.e. one full cycle finished
func (p *Pattern) Advance() bool {
	p.index = (p.index + 1) % len(p.corners)
	return p.index == 0
}
