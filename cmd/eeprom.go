// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

var eepromInitTimeout int

var eepromCmd = &cobra.Command{
	Use:   "eeprom",
	Short: "EEPROM commands (initialize, save)",
	Long: `Send channel-7 EEPROM commands to the module.

The module keeps power-on values for its four DAC channels in EEPROM.
'initialize' reloads them, driving the outputs to their stored
settings, and the module echoes each reloaded channel so the host
learns the stored values. 'save' writes the current outputs back to
EEPROM as the new power-on state.`,
}

var eepromInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Reload the DAC channels from EEPROM",
	Long: `Send the INITIALIZE command.

The module reloads the power-on value of each DAC channel from EEPROM,
updates the outputs, and echoes channels 0-3 back. This command
listens for the echo and prints the reported values.

Exit codes:
  0 - Command sent, echo received
  1 - Command sent, echo incomplete before timeout
  2 - Connection error`,
	RunE: runEepromInit,
}

var eepromSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist current outputs to EEPROM",
	Long: `Send the SAVE command.

The module writes the current DAC setpoints to EEPROM. Those values
become the power-on state and the targets of a later INITIALIZE.

Exit codes:
  0 - Command sent
  1 - Send failed
  2 - Connection error`,
	RunE: runEepromSave,
}

func init() {
	rootCmd.AddCommand(eepromCmd)
	eepromCmd.AddCommand(eepromInitCmd)
	eepromCmd.AddCommand(eepromSaveCmd)
	eepromInitCmd.Flags().IntVar(&eepromInitTimeout, "timeout", 3, "Seconds to wait for the channel echo")
}

func runEepromInit(cmd *cobra.Command, args []string) error {
	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	if !ctrl.Initialize() {
		fmt.Fprintf(os.Stderr, "SEND FAILED\n")
		os.Exit(1)
	}

	frame := dim.NewInitialize().Frame()
	fmt.Printf("Sent INITIALIZE (%02X %02X %02X)\n", frame[0], frame[1], frame[2])
	fmt.Printf("Waiting for DAC channel echo...\n\n")

	// The echo covers the four DAC channels; the ADC channels report on
	// their own schedule and are not part of the reply.
	deadline := time.Now().Add(time.Duration(eepromInitTimeout) * time.Second)
	for time.Now().Before(deadline) {
		ctrl.Drain()
		if countKnownDACs(ctrl.Table()) >= int(dim.ChannelP1) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	known := 0
	for channel := uint8(0); channel < dim.ChannelP1; channel++ {
		value, ok := ctrl.Table().Get(channel)
		if !ok {
			fmt.Printf("  ch%d %-14s (no echo)\n", channel, dim.FormatChannel(channel))
			continue
		}
		known++
		fmt.Printf("  ch%d %-14s 0x%04X (%d)\n", channel, dim.FormatChannel(channel), value, value)
	}

	if known < int(dim.ChannelP1) {
		fmt.Printf("\nEcho incomplete: %d/%d DAC channels reported within %ds\n",
			known, dim.ChannelP1, eepromInitTimeout)
		os.Exit(1)
	}

	fmt.Printf("\nDAC channels reloaded from EEPROM\n")
	return nil
}

func runEepromSave(cmd *cobra.Command, args []string) error {
	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	if !ctrl.Save() {
		fmt.Fprintf(os.Stderr, "SEND FAILED\n")
		os.Exit(1)
	}

	frame := dim.NewSave().Frame()
	fmt.Printf("Sent SAVE (%02X %02X %02X)\n", frame[0], frame[1], frame[2])
	fmt.Printf("Current outputs stored as power-on values\n")
	return nil
}

func countKnownDACs(table *steer.ChannelTable) int {
	known := 0
	for channel := uint8(0); channel < dim.ChannelP1; channel++ {
		if _, ok := table.Get(channel); ok {
			known++
		}
	}
	return known
}
