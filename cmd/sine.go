// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fsoptics/fsmctl/pkg/steer"
)

var (
	sineFreqX    float64
	sineFreqY    float64
	sineAmpX     float64
	sineAmpY     float64
	sineDuration time.Duration
)

var sineCmd = &cobra.Command{
	Use:   "sine",
	Short: "Sweep axes with sine waves",
	Long: `Drive the X and Y axes with sine waves centered on mid-scale.

Each axis evaluates value = center + amplitude * center * sin(2*pi*f*t),
so amplitude 1.0 sweeps the full range and 0.5 covers the middle half.
An axis runs when its frequency is positive; by default only X sweeps.
Unequal X and Y frequencies trace Lissajous figures on the mirror.

Targets are recomputed every 500 microseconds and the output slews
toward them at the configured step rate, so the realized wave is slew
limited at high frequency or amplitude.

Runs until interrupted, or for --duration if given.

Examples:
  # 1 Hz full-range sweep on X
  fsmctl sine --freq-x 1 --amp-x 1 --port /dev/ttyUSB0

  # 3:2 Lissajous figure for 30 seconds
  fsmctl sine --freq-x 3 --freq-y 2 --duration 30s --port /dev/ttyUSB0

Exit codes:
  0 - Run completed or interrupted
  2 - Connection error`,
	RunE: runSine,
}

func init() {
	rootCmd.AddCommand(sineCmd)
	sineCmd.Flags().Float64Var(&sineFreqX, "freq-x", 1.0, "X axis frequency in Hz (0 disables)")
	sineCmd.Flags().Float64Var(&sineFreqY, "freq-y", 0.0, "Y axis frequency in Hz (0 disables)")
	sineCmd.Flags().Float64Var(&sineAmpX, "amp-x", 0.5, "X axis amplitude (0.0-1.0)")
	sineCmd.Flags().Float64Var(&sineAmpY, "amp-y", 0.5, "Y axis amplitude (0.0-1.0)")
	sineCmd.Flags().DurationVar(&sineDuration, "duration", 0, "Stop after this long (0 runs until Ctrl+C)")
}

func runSine(cmd *cobra.Command, args []string) error {
	if sineFreqX <= 0 && sineFreqY <= 0 {
		fmt.Fprintf(os.Stderr, "Argument error: at least one of --freq-x/--freq-y must be positive\n")
		os.Exit(2)
	}

	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Sine Sweep\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if sineFreqX > 0 {
		fmt.Printf("X: %.3f Hz, amplitude %.2f\n", sineFreqX, sineAmpX)
	}
	if sineFreqY > 0 {
		fmt.Printf("Y: %.3f Hz, amplitude %.2f\n", sineFreqY, sineAmpY)
	}
	if sineDuration > 0 {
		fmt.Printf("Duration: %v\n", sineDuration)
	} else {
		fmt.Printf("Press Ctrl+C to stop\n")
	}
	fmt.Println()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if sineDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, sineDuration)
		defer cancel()
	}

	// Sweeps orbit mid-scale, so start the driven axes there
	var sweepAxes []steer.Axis
	if sineFreqX > 0 {
		sweepAxes = append(sweepAxes, steer.AxisX)
	}
	if sineFreqY > 0 {
		sweepAxes = append(sweepAxes, steer.AxisY)
	}
	if !ctrl.Center(sweepAxes...) {
		fmt.Fprintf(os.Stderr, "SEND FAILED: could not center before sweep\n")
		os.Exit(1)
	}

	grp, ctx := errgroup.WithContext(ctx)
	targets := steer.NewTargets()

	if sineFreqX > 0 {
		src := &steer.SineSource{Frequency: sineFreqX, Amplitude: sineAmpX}
		cell := targets.Cell(steer.AxisX)
		grp.Go(func() error {
			return steer.RunSource(ctx, steer.SourceTickPeriod, src, cell)
		})
	}
	if sineFreqY > 0 {
		src := &steer.SineSource{Frequency: sineFreqY, Amplitude: sineAmpY}
		cell := targets.Cell(steer.AxisY)
		grp.Go(func() error {
			return steer.RunSource(ctx, steer.SourceTickPeriod, src, cell)
		})
	}
	grp.Go(func() error {
		return steer.RunMover(ctx, steer.MoveTickPeriod, ctrl, targets)
	})
	grp.Go(func() error {
		return steer.RunDrain(ctx, steer.DrawTickPeriod, ctrl)
	})
	grp.Go(func() error {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	err = grp.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	fmt.Println()
	fmt.Print(ctrl.Stats().String())
	return err
}
