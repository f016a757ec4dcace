// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mara Voss, FS Optics

package steer

import (
	"context"
	"time"
)

// Tick periods used by the stock drivers. Sources run at the analog
// head's native 2 kHz update; pattern drawing steps at a leisurely
// 100 Hz so the slewed trace is visible.
const (
	SourceTickPeriod = 500 * time.Microsecond
	MoveTickPeriod   = 500 * time.Microsecond
	DrawTickPeriod   = 10 * time.Millisecond
)

// RunTicker calls fn every period until ctx ends or fn fails. The
// elapsed argument is the wall-clock time since RunTicker started, so
// a periodic source stays phase-accurate even when ticks arrive late.
func RunTicker(ctx context.Context, period time.Duration, fn func(elapsed time.Duration) error) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(time.Since(start)); err != nil {
				return err
			}
		}
	}
}

// RunSource periodically samples src and stores the result in cell.
// It runs until ctx ends.
func RunSource(ctx context.Context, period time.Duration, src Source, cell *TargetCell) error {
	return RunTicker(ctx, period, func(elapsed time.Duration) error {
		cell.Store(src.Target(elapsed))
		return nil
	})
}

// RunMover periodically feeds the newest armed targets to the
// controller's move tick. It runs until ctx ends. Sources and the
// mover need no further coordination: the cells carry the freshest
// target across the cadence boundary.
func RunMover(ctx context.Context, period time.Duration, ctrl *Controller, targets *Targets) error {
	return RunTicker(ctx, period, func(time.Duration) error {
		if snapshot := targets.Snapshot(); len(snapshot) > 0 {
			ctrl.MoveToTarget(snapshot)
		}
		return nil
	})
}

// RunDrain periodically consumes inbound traffic so decoded frames
// keep refreshing the channel table while other drivers run
func RunDrain(ctx context.Context, period time.Duration, ctrl *Controller) error {
	return RunTicker(ctx, period, func(time.Duration) error {
		ctrl.Drain()
		return nil
	})
}
