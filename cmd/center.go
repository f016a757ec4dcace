// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

var centerCmd = &cobra.Command{
	Use:   "center [axis ...]",
	Short: "Drive axes to mid-scale",
	Long: `Send LOAD_AND_UPDATE frames setting axes to 0x7FFF, the middle of
the 16-bit range.

With no arguments all four DAC channels are centered. Otherwise only
the named axes (X, Y, C, D or channel numbers 0-3) move.

Examples:
  # Park the mirror in the middle of both axes
  fsmctl center --port /dev/ttyUSB0

  # Center only the beam-steering pair
  fsmctl center x y --port /dev/ttyUSB0

Exit codes:
  0 - Frames sent
  1 - Send failed
  2 - Connection or argument error`,
	RunE: runCenter,
}

func init() {
	rootCmd.AddCommand(centerCmd)
}

func runCenter(cmd *cobra.Command, args []string) error {
	axes := make([]steer.Axis, 0, len(args))
	for _, arg := range args {
		axis, err := steer.ParseAxis(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
			os.Exit(2)
		}
		axes = append(axes, axis)
	}

	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	if !ctrl.Center(axes...) {
		fmt.Fprintf(os.Stderr, "SEND FAILED\n")
		os.Exit(1)
	}

	if len(axes) == 0 {
		axes = steer.AllAxes()
	}
	for _, axis := range axes {
		fmt.Printf("Centered %s = 0x%04X\n", dim.FormatChannel(axis.Channel()), dim.ValueCenter)
	}

	return nil
}
