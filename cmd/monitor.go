// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
)

var (
	monitorErrorsOnly   bool
	monitorStatsEvery   int
	monitorShowCommands bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode and display DIM frames as they arrive",
	Long: `Continuously decode the inbound byte stream and display each frame
with timestamp, raw bytes, channel, mode, and value.

The decoder self-synchronizes on the framing bit: after attaching
mid-stream it locks onto the next frame start and reports how many
bytes it skipped. Frames with anomalies (reserved mode, unknown
command, update mode on an ADC channel) are highlighted; use
--errors-only to suppress everything else.

Supports both serial and WebSocket connections.

Examples:
  # Watch all traffic on the bench link
  fsmctl monitor --port /dev/ttyUSB0

  # Only anomalies, with a statistics summary every 30s
  fsmctl monitor --port /dev/ttyUSB0 --errors-only --stats-interval 30`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorErrorsOnly, "errors-only", false, "Show only anomalous frames")
	monitorCmd.Flags().IntVar(&monitorStatsEvery, "stats-interval", 0, "Statistics summary interval in seconds (0 disables)")
	monitorCmd.Flags().BoolVar(&monitorShowCommands, "commands", true, "Highlight command-channel frames")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenLink()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if monitorErrorsOnly {
		fmt.Printf("Mode: Anomalies only\n")
	} else {
		fmt.Printf("Mode: All frames\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := dim.NewDecoder()
	if strictMode {
		decoder = dim.NewStrictDecoder()
	}
	stats := dim.NewStatistics()

	// Reader goroutine so the stats ticker can fire while the read blocks
	dataChan := make(chan []byte, 10)
	errChan := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			dataChan <- data
		}
	}()

	var statsTick <-chan time.Time
	if monitorStatsEvery > 0 {
		ticker := time.NewTicker(time.Duration(monitorStatsEvery) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	synchronized := false

	for {
		select {
		case data := <-dataChan:
			for _, b := range data {
				packet, ok := decoder.DecodeByte(b)
				if !ok {
					continue
				}

				if !synchronized {
					synchronized = true
					if skipped := decoder.ResyncBytes(); skipped > 0 {
						fmt.Printf("[SYNC] Locked after skipping %d bytes\n\n", skipped)
					} else {
						fmt.Printf("[SYNC] Locked on first byte\n\n")
					}
				}

				validationErrors := dim.ValidatePacket(packet)
				stats.RecordDecode(packet, validationErrors)
				stats.SetResyncBytes(decoder.ResyncBytes())
				stats.SetLaxContinuations(decoder.LaxContinuations())

				if len(validationErrors) > 0 {
					printFrameAnomalies(packet, validationErrors)
				} else if packet.IsCommand() && monitorShowCommands {
					printCommandFrame(packet)
				} else if !monitorErrorsOnly {
					fmt.Print(dim.FormatPacket(packet))
				}
			}

		case err := <-errChan:
			if err == ErrLinkClosed {
				fmt.Printf("\nConnection closed\n")
			} else {
				fmt.Printf("\nRead error: %v\n", err)
			}
			if monitorStatsEvery > 0 {
				fmt.Println()
				fmt.Print(stats.String())
			}
			return nil

		case <-statsTick:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

// printCommandFrame prints a command-channel frame in highlighted format
func printCommandFrame(packet dim.Packet) {
	timestamp := packet.Timestamp().Format("15:04:05.000")
	frame := packet.Frame()
	fmt.Printf("[%s] %02X %02X %02X  \033[1;32mCMD %s\033[0m\n",
		timestamp, frame[0], frame[1], frame[2], dim.FormatCommand(packet.Mode()))
}

// printFrameAnomalies prints a frame's validation findings
func printFrameAnomalies(packet dim.Packet, errors []dim.ValidationError) {
	timestamp := packet.Timestamp().Format("15:04:05.000")
	frame := packet.Frame()

	fmt.Printf("[%s] %02X %02X %02X  \033[1;33mANOMALY:\033[0m %s\n",
		timestamp, frame[0], frame[1], frame[2], dim.FormatChannel(packet.Channel()))

	for i, err := range errors {
		switch err.Type {
		case dim.AnomalyReservedMode:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if channel, ok := err.Details["channel"].(uint8); ok {
				fmt.Printf("    channel=%d value=0x%04X\n", channel, packet.Value())
			}

		case dim.AnomalyUnknownCommand:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case dim.AnomalyInputWrite:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if channel, ok := err.Details["channel"].(uint8); ok {
				fmt.Printf("    channel=%d (%s)\n", channel, dim.FormatChannel(channel))
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}
