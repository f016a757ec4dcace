// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List the serial ports visible to this host.

Useful for finding the device node of a freshly plugged-in DIM adapter
before passing it to --port.

Examples:
  # List ports, then monitor the one that appeared
  fsmctl ports
  fsmctl monitor --port /dev/ttyUSB0

Exit codes:
  0 - At least one port found
  1 - No ports found
  2 - Enumeration error`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enumeration error: %v\n", err)
		os.Exit(2)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		os.Exit(1)
	}

	for _, port := range ports {
		fmt.Println(port)
	}

	return nil
}
