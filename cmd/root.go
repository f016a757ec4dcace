// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Behavior flags
	configPath string
	stepSize   uint16
	strictMode bool
)

var rootCmd = &cobra.Command{
	Use:   "fsmctl",
	Short: "Fast-steering-mirror DIM controller",
	Long: `fsmctl - A CLI tool for driving and monitoring a fast-steering mirror
through its Digital Interface Module (DIM) three-byte serial protocol.

Provides commands for direct setpoint control, slew-limited scan patterns,
EEPROM setpoint management, live traffic monitoring, and an interactive
shell.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 460800]
  WebSocket: --url ws://host/path [--username user]

The DIM end of the serial link runs fixed at 460800 baud, 8 data bits, no
parity, one stop bit. Override --baud only when an intermediate bridge
re-times the link.

For WebSocket authentication, the password is read from the FSMCTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "0.3.0",
}

func init() {
	rootCmd.PersistentPreRunE = applyConfigDefaults

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", dim.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Behavior flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/fsmctl/config.yaml)")
	rootCmd.PersistentFlags().Uint16Var(&stepSize, "step", steer.DefaultStepSize, "Per-tick slew limit in DAC counts")
	rootCmd.PersistentFlags().BoolVar(&strictMode, "strict", false, "Reject frames with corrupted framing bits instead of tolerating them")
}

// applyConfigDefaults fills unset flags from the config file. Flags
// given on the command line always win.
func applyConfigDefaults(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	flags := rootCmd.PersistentFlags()
	if cfg.Port != "" && !flags.Changed("port") {
		portName = cfg.Port
	}
	if cfg.Baud != 0 && !flags.Changed("baud") {
		baudRate = cfg.Baud
	}
	if cfg.URL != "" && !flags.Changed("url") {
		wsURL = cfg.URL
	}
	if cfg.Username != "" && !flags.Changed("username") {
		wsUsername = cfg.Username
	}
	if cfg.StepSize != 0 && !flags.Changed("step") {
		stepSize = cfg.StepSize
	}
	if cfg.Strict && !flags.Changed("strict") {
		strictMode = true
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
