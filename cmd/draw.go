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
	drawCycles  int
	drawCorners bool
)

var (
	errDrawComplete = errors.New("draw complete")
	errLinkLost     = errors.New("link lost")
)

var drawCmd = &cobra.Command{
	Use:   "draw <pattern>",
	Short: "Trace a test pattern with the beam",
	Long: `Slew the X/Y pair through the corners of a stock pattern.

Patterns:
  square - perimeter of the full range:
           (0,0) -> (FFFF,0) -> (FFFF,FFFF) -> (0,FFFF)
  bowtie - crossed diagonals:
           (0,0) -> (0,FFFF) -> (FFFF,0) -> (FFFF,FFFF)

The controller holds each edge as a synchronized two-axis move, slewing
at the configured step per tick, and advances to the next corner when
both axes arrive. A camera or position-sensing detector watching the
beam sees the pattern drawn edge by edge.

Runs until interrupted, or for --cycles full traversals if given.

Examples:
  # Trace the square forever
  fsmctl draw square --port /dev/ttyUSB0

  # Trace the bowtie three times with a finer step
  fsmctl draw bowtie --cycles 3 --step 0x3F --port /dev/ttyUSB0

Exit codes:
  0 - Run completed or interrupted
  1 - Link failed mid-trace
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(1),
	RunE: runDraw,
}

func init() {
	rootCmd.AddCommand(drawCmd)
	drawCmd.Flags().IntVar(&drawCycles, "cycles", 0, "Stop after this many full traversals (0 runs until Ctrl+C)")
	drawCmd.Flags().BoolVar(&drawCorners, "corners", false, "Print each corner as it is reached")
}

func runDraw(cmd *cobra.Command, args []string) error {
	pattern, err := steer.PatternByName(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(2)
	}

	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Pattern Trace\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Pattern: %s\n", pattern.Name())
	if drawCycles > 0 {
		fmt.Printf("Cycles: %d\n", drawCycles)
	} else {
		fmt.Printf("Press Ctrl+C to stop\n")
	}
	fmt.Println()

	// Start from a known spot so the first edge is the same every run
	if !ctrl.Center() {
		fmt.Fprintf(os.Stderr, "SEND FAILED: could not center before trace\n")
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)

	completed := 0
	grp.Go(func() error {
		return steer.RunTicker(ctx, steer.DrawTickPeriod, func(time.Duration) error {
			if !ctrl.Attached() {
				return errLinkLost
			}
			if ctrl.MoveToTarget(pattern.Targets()) {
				return nil // still slewing toward the corner
			}
			if drawCorners {
				x, y := pattern.Corner()
				fmt.Printf("Corner (0x%04X, 0x%04X) reached\n", x, y)
			}
			if pattern.Advance() {
				completed++
				fmt.Printf("Cycle %d complete\n", completed)
				if drawCycles > 0 && completed >= drawCycles {
					return errDrawComplete
				}
			}
			return nil
		})
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
	if errors.Is(err, context.Canceled) || errors.Is(err, errDrawComplete) || errors.Is(err, errLinkLost) {
		err = nil
	}

	if !ctrl.Attached() {
		fmt.Fprintf(os.Stderr, "\nLink failed mid-trace\n")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(ctrl.Stats().String())
	return err
}
