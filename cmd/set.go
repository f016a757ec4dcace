// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

var setCmd = &cobra.Command{
	Use:   "set <axis> <value>",
	Short: "Write one DAC channel and update the output",
	Long: `Send a single LOAD_AND_UPDATE frame for one axis.

The axis is X, Y, C, or D (case-insensitive), or the raw channel number
0-3. The value is a 16-bit setting, decimal or 0x-prefixed hex; 0x0000
is one mechanical limit, 0xFFFF the other, 0x7FFF center.

The output changes as soon as the module receives the frame. For a
synchronized multi-axis move use 'draw' or the shell's move command
instead; 'set' moves exactly one axis.

Examples:
  # Center the X axis
  fsmctl set x 0x7FFF --port /dev/ttyUSB0

  # Drive Y to the low limit
  fsmctl set y 0 --port /dev/ttyUSB0

Exit codes:
  0 - Frame sent
  1 - Send failed
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	axis, err := steer.ParseAxis(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(2)
	}

	value, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: invalid value %q: %v\n", args[1], err)
		os.Exit(2)
	}

	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	if !ctrl.Set(axis, uint16(value)) {
		fmt.Fprintf(os.Stderr, "SEND FAILED\n")
		os.Exit(1)
	}

	frame := dim.Encode(uint16(value), axis.Channel(), dim.ModeUpdate)
	fmt.Printf("Set %s = 0x%04X (%d)\n", dim.FormatChannel(axis.Channel()), value, value)
	fmt.Printf("Frame: %02X %02X %02X\n", frame[0], frame[1], frame[2])

	return nil
}
