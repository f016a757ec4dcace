// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

var (
	probeTimeout int
	probePoke    bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test connection by waiting for a valid DIM frame",
	Long: `Wait for a valid DIM frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
complete three-byte frame. Bytes received before the decoder locks onto
a frame start are skipped and counted.

With --poke, an INITIALIZE command is sent first. A live module answers
by echoing its DAC channels, so the probe succeeds quickly even on an
otherwise quiet link.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking a bench cable or a WebSocket bridge before starting
a control session.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	probeCmd.Flags().BoolVar(&probePoke, "poke", false, "Send INITIALIZE to provoke a channel echo")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Link Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for valid DIM frame...\n\n")

	decoder := dim.NewDecoder()
	buf := make([]byte, 128)

	// Channel for frame reception
	packetChan := make(chan dim.Packet, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				packet, ok := decoder.DecodeByte(buf[i])
				if !ok {
					continue
				}
				// Got a complete frame!
				if skipped := decoder.ResyncBytes(); skipped > 0 {
					fmt.Printf("(skipped %d bytes before sync)\n", skipped)
				}
				packetChan <- packet
				return
			}
		}
	}()

	if probePoke {
		frame := dim.NewInitialize().Frame()
		if _, err := conn.Write(frame[:]); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
		fmt.Printf("Sent INITIALIZE (%02X %02X %02X)\n", frame[0], frame[1], frame[2])
	}

	// Wait for frame or timeout
	select {
	case packet := <-packetChan:
		frame := packet.Frame()
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Bytes: %02X %02X %02X\n", frame[0], frame[1], frame[2])
		if packet.IsCommand() {
			fmt.Printf("  Channel: %s\n", dim.FormatChannel(packet.Channel()))
			fmt.Printf("  Command: %s\n", dim.FormatCommand(packet.Mode()))
		} else {
			fmt.Printf("  Channel: %s\n", dim.FormatChannel(packet.Channel()))
			fmt.Printf("  Mode: %s\n", dim.FormatMode(packet.Mode()))
			fmt.Printf("  Value: 0x%04X (%d)\n", packet.Value(), packet.Value())
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(probeTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", probeTimeout)
		os.Exit(1)
	}

	return nil
}
