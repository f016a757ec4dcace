// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"testing"
	"time"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

// ============================================================
// Sine Source Tests
// ============================================================

func TestSineSource_StartsAtCenter(t *testing.T) {
	src := SineSource{Frequency: 1, Amplitude: 1}
	if v := src.Target(0); v != dim.ValueCenter {
		t.Errorf("t=0: expected 0x%04X, got 0x%04X", dim.ValueCenter, v)
	}
}

func TestSineSource_QuarterPeriodPeaks(t *testing.T) {
	src := SineSource{Frequency: 1, Amplitude: 1}

	if v := src.Target(250 * time.Millisecond); v != 0xFFFE {
		t.Errorf("quarter period: expected 0xFFFE, got 0x%04X", v)
	}
	if v := src.Target(500 * time.Millisecond); v != dim.ValueCenter {
		t.Errorf("half period: expected center, got 0x%04X", v)
	}
	if v := src.Target(750 * time.Millisecond); v != 0x0000 {
		t.Errorf("three-quarter period: expected 0x0000, got 0x%04X", v)
	}
}

func TestSineSource_HalfAmplitude(t *testing.T) {
	src := SineSource{Frequency: 1, Amplitude: 0.5}
	if v := src.Target(250 * time.Millisecond); v != 49150 {
		t.Errorf("half-amplitude peak: expected 49150, got %d", v)
	}
}

func TestSineSource_AmplitudeClamped(t *testing.T) {
	over := SineSource{Frequency: 1, Amplitude: 3.5}
	unit := SineSource{Frequency: 1, Amplitude: 1}
	for _, elapsed := range []time.Duration{0, 100 * time.Millisecond, 250 * time.Millisecond, 600 * time.Millisecond} {
		if over.Target(elapsed) != unit.Target(elapsed) {
			t.Errorf("amplitude above 1 should behave as 1 at %v", elapsed)
		}
	}

	under := SineSource{Frequency: 1, Amplitude: -2}
	for _, elapsed := range []time.Duration{0, 333 * time.Millisecond} {
		if v := under.Target(elapsed); v != dim.ValueCenter {
			t.Errorf("negative amplitude should hold center, got 0x%04X", v)
		}
	}
}

func TestSineSource_ZeroAmplitudeHoldsCenter(t *testing.T) {
	src := SineSource{Frequency: 10, Amplitude: 0}
	for ms := 0; ms < 200; ms += 7 {
		if v := src.Target(time.Duration(ms) * time.Millisecond); v != dim.ValueCenter {
			t.Fatalf("t=%dms: expected center, got 0x%04X", ms, v)
		}
	}
}

func TestSineSource_ZeroFrequencyHoldsCenter(t *testing.T) {
	src := SineSource{Frequency: 0, Amplitude: 1}
	for _, elapsed := range []time.Duration{0, time.Second, time.Hour} {
		if v := src.Target(elapsed); v != dim.ValueCenter {
			t.Errorf("t=%v: expected center, got 0x%04X", elapsed, v)
		}
	}
}

// ============================================================
// Quad-Cell Source Tests
// ============================================================

func TestQuadCellSource_StartsCentered(t *testing.T) {
	src := NewQuadCellSource(0)
	x, y := src.Position()
	if x != dim.ValueCenter || y != dim.ValueCenter {
		t.Errorf("start: (0x%04X, 0x%04X), expected center", x, y)
	}
}

func TestQuadCellSource_BalancedBeamHoldsPosition(t *testing.T) {
	src := NewQuadCellSource(0)
	src.Observe(1, 1, 1, 1)
	x, y := src.Position()
	if x != dim.ValueCenter || y != dim.ValueCenter {
		t.Errorf("balanced beam moved the position to (0x%04X, 0x%04X)", x, y)
	}
}

func TestQuadCellSource_AllDarkHoldsPosition(t *testing.T) {
	src := NewQuadCellSource(0)
	src.Observe(0, 0, 0, 0)
	x, y := src.Position()
	if x != dim.ValueCenter || y != dim.ValueCenter {
		t.Errorf("dark cell moved the position to (0x%04X, 0x%04X)", x, y)
	}
}

func TestQuadCellSource_XImbalanceCorrectsX(t *testing.T) {
	src := NewQuadCellSource(0)
	// Beam sits toward +x: A and B bright, C and D dim.
	src.Observe(2, 2, 1, 1)
	x, y := src.Position()
	if x != 32601 {
		t.Errorf("x: expected 32601, got %d", x)
	}
	if y != dim.ValueCenter {
		t.Errorf("y should be untouched, got %d", y)
	}
}

func TestQuadCellSource_YImbalanceCorrectsY(t *testing.T) {
	src := NewQuadCellSource(0)
	// Beam sits toward +y: A and C bright, B and D dark.
	src.Observe(1, 0, 1, 0)
	x, y := src.Position()
	if x != dim.ValueCenter {
		t.Errorf("x should be untouched, got %d", x)
	}
	if y != dim.ValueCenter-DefaultQuadGain {
		t.Errorf("y: expected %d, got %d", dim.ValueCenter-DefaultQuadGain, y)
	}
}

func TestQuadCellSource_CorrectionClampsToRange(t *testing.T) {
	src := NewQuadCellSource(100000)
	src.Observe(1, 0, 0, 0) // full +x, +y imbalance with a huge gain
	x, y := src.Position()
	if x != 0 || y != 0 {
		t.Errorf("expected clamp to (0, 0), got (%d, %d)", x, y)
	}

	src.Observe(0, 0, 0, 1) // full -x, -y imbalance
	x, y = src.Position()
	if x != dim.ValueMax || y != dim.ValueMax {
		t.Errorf("expected clamp to full scale, got (%d, %d)", x, y)
	}
}

func TestQuadCellSource_SourceViews(t *testing.T) {
	src := NewQuadCellSource(0)
	src.Observe(2, 2, 1, 1)

	x, y := src.Position()
	if got := src.XSource().Target(0); got != x {
		t.Errorf("XSource: expected %d, got %d", x, got)
	}
	if got := src.YSource().Target(time.Second); got != y {
		t.Errorf("YSource: expected %d, got %d", y, got)
	}
}

// ============================================================
// Pattern Tests
// ============================================================

func TestSquarePattern_CornerSequence(t *testing.T) {
	p := SquarePattern()
	want := [][2]uint16{
		{0x0000, 0x0000},
		{0xFFFF, 0x0000},
		{0xFFFF, 0xFFFF},
		{0x0000, 0xFFFF},
	}
	for i, corner := range want {
		x, y := p.Corner()
		if x != corner[0] || y != corner[1] {
			t.Errorf("corner %d: (0x%04X, 0x%04X), expected (0x%04X, 0x%04X)",
				i, x, y, corner[0], corner[1])
		}
		wrapped := p.Advance()
		if wrapped != (i == len(want)-1) {
			t.Errorf("corner %d: wrapped=%v", i, wrapped)
		}
	}
	// Back at the first corner.
	if x, y := p.Corner(); x != 0 || y != 0 {
		t.Errorf("after full cycle: (0x%04X, 0x%04X), expected origin", x, y)
	}
}

func TestBowtiePattern_CornerSequence(t *testing.T) {
	p := BowtiePattern()
	want := [][2]uint16{
		{0x0000, 0x0000},
		{0x0000, 0xFFFF},
		{0xFFFF, 0x0000},
		{0xFFFF, 0xFFFF},
	}
	for i, corner := range want {
		x, y := p.Corner()
		if x != corner[0] || y != corner[1] {
			t.Errorf("corner %d: (0x%04X, 0x%04X), expected (0x%04X, 0x%04X)",
				i, x, y, corner[0], corner[1])
		}
		p.Advance()
	}
}

func TestPatternByName(t *testing.T) {
	if p, err := PatternByName("square"); err != nil || p.Name() != "square" {
		t.Errorf("square: %v, %v", p, err)
	}
	if p, err := PatternByName("bowtie"); err != nil || p.Name() != "bowtie" {
		t.Errorf("bowtie: %v, %v", p, err)
	}
	if _, err := PatternByName("spiral"); err == nil {
		t.Error("expected an error for an unknown pattern")
	}
}

func TestPattern_Targets(t *testing.T) {
	p := SquarePattern()
	p.Advance() // corner (0xFFFF, 0)

	targets := p.Targets()
	if len(targets) != 2 {
		t.Fatalf("expected 2 axes, got %d", len(targets))
	}
	if targets[AxisX] != 0xFFFF || targets[AxisY] != 0x0000 {
		t.Errorf("targets: %v", targets)
	}
}

// ============================================================
// Target Cell Tests
// ============================================================

func TestTargetCell_StartsDisarmed(t *testing.T) {
	var cell TargetCell
	if _, ok := cell.Load(); ok {
		t.Error("fresh cell should be disarmed")
	}
}

func TestTargetCell_LastWriteWins(t *testing.T) {
	var cell TargetCell
	cell.Store(0x1111)
	cell.Store(0x2222)
	value, ok := cell.Load()
	if !ok || value != 0x2222 {
		t.Errorf("expected (0x2222, true), got (0x%04X, %v)", value, ok)
	}
}

func TestTargetCell_StaysArmedAcrossLoads(t *testing.T) {
	var cell TargetCell
	cell.Store(0x1234)
	cell.Load()
	value, ok := cell.Load()
	if !ok || value != 0x1234 {
		t.Errorf("second load: expected (0x1234, true), got (0x%04X, %v)", value, ok)
	}
}

func TestTargetCell_ZeroTargetIsArmed(t *testing.T) {
	var cell TargetCell
	cell.Store(0)
	value, ok := cell.Load()
	if !ok || value != 0 {
		t.Errorf("expected (0, true), got (0x%04X, %v)", value, ok)
	}
}

func TestTargetCell_Clear(t *testing.T) {
	var cell TargetCell
	cell.Store(0x1234)
	cell.Clear()
	if _, ok := cell.Load(); ok {
		t.Error("cleared cell should be disarmed")
	}
}

func TestTargets_Snapshot(t *testing.T) {
	targets := NewTargets()
	targets.Store(AxisX, 0x1000)
	targets.Cell(AxisC).Store(0x3000)

	snapshot := targets.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 armed targets, got %d", len(snapshot))
	}
	if snapshot[AxisX] != 0x1000 || snapshot[AxisC] != 0x3000 {
		t.Errorf("snapshot: %v", snapshot)
	}
	if _, ok := snapshot[AxisY]; ok {
		t.Error("disarmed axis must be absent from the snapshot")
	}
}

// ============================================================
// Axis Tests
// ============================================================

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in       string
		expected Axis
	}{
		{"x", AxisX}, {"X", AxisX}, {"0", AxisX},
		{"y", AxisY}, {" Y ", AxisY}, {"1", AxisY},
		{"c", AxisC}, {"2", AxisC},
		{"d", AxisD}, {"3", AxisD},
	}
	for _, tt := range tests {
		axis, err := ParseAxis(tt.in)
		if err != nil || axis != tt.expected {
			t.Errorf("ParseAxis(%q) = %v, %v; expected %v", tt.in, axis, err, tt.expected)
		}
	}

	for _, bad := range []string{"", "z", "4", "xy"} {
		if _, err := ParseAxis(bad); err == nil {
			t.Errorf("ParseAxis(%q) should fail", bad)
		}
	}
}

func TestAxis_Channel(t *testing.T) {
	for i, axis := range AllAxes() {
		if axis.Channel() != uint8(i) {
			t.Errorf("axis %s: channel %d, expected %d", axis, axis.Channel(), i)
		}
	}
}
