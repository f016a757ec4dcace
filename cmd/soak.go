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

var soakDuration int

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Test link stability over time",
	Long: `Hold the connection open and count traffic without sending anything.

This command connects and just listens, logging received bytes, decoded
frames, and any resync events. Useful for debugging flaky cables,
marginal baud settings, or WebSocket bridge stability.

Exit codes:
  0 - Link stayed up for the whole duration
  1 - Link failed before the duration elapsed
  2 - Connection error`,
	RunE: runSoak,
}

func init() {
	rootCmd.AddCommand(soakCmd)
	soakCmd.Flags().IntVar(&soakDuration, "duration", 30, "Test duration in seconds")
}

func runSoak(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Link Soak Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", soakDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	decoder := dim.NewDecoder()
	startTime := time.Now()
	endTime := startTime.Add(time.Duration(soakDuration) * time.Second)
	bytesReceived := 0
	framesDecoded := 0

	fmt.Printf("Listening...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			framesDecoded += len(decoder.Feed(data))

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			printSoakResults(time.Since(startTime), bytesReceived, framesDecoded, decoder.ResyncBytes())
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-time.After(1 * time.Second):
			// Heartbeat so a quiet link still shows the test is alive
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] %d bytes, %d frames, %d resync bytes (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"),
				bytesReceived, framesDecoded, decoder.ResyncBytes(), remaining)
		}
	}

	printSoakResults(time.Since(startTime), bytesReceived, framesDecoded, decoder.ResyncBytes())
	fmt.Printf("Result: PASSED (link stable)\n")
	return nil
}

func printSoakResults(elapsed time.Duration, bytes, frames int, resyncBytes uint64) {
	fmt.Printf("\n--- Soak Results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Second))
	fmt.Printf("Bytes received: %d\n", bytes)
	fmt.Printf("Frames decoded: %d\n", frames)
	fmt.Printf("Resync bytes: %d\n", resyncBytes)
}
