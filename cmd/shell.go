// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

const shellHistoryFile = ".fsmctl_history"

var shellVerbs = []string{"set", "get", "move", "center", "init", "save", "stats", "help", "quit", "exit"}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive command shell",
	Long: `Open an interactive shell on the connection.

Commands:
  set <axis> <value>   Write one DAC channel (LOAD_AND_UPDATE)
  get [axis]           Show the channel table (or one channel)
  move <x> <y>         Slew X and Y to a position, synchronized
  center [axis ...]    Drive axes to mid-scale
  init                 Reload the DAC channels from EEPROM
  save                 Persist current outputs to EEPROM
  stats                Show link statistics
  help                 Show this list
  quit / exit          Leave the shell

Values are decimal or 0x-prefixed hex. Axes are X, Y, C, D or channel
numbers 0-3. Command history is kept in ~/` + shellHistoryFile + `.

Inbound traffic is drained in the background, so 'get' reflects frames
the module sent while the prompt was idle.`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctrl, conn, connInfo, err := openController(steer.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("fsmctl - Interactive Shell\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Type 'help' for commands, 'quit' to leave\n\n")

	// Keep the channel table fresh while the prompt blocks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go steer.RunDrain(ctx, steer.DrawTickPeriod, ctrl)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string
		for _, verb := range shellVerbs {
			if strings.HasPrefix(verb, strings.ToLower(prefix)) {
				matches = append(matches, verb)
			}
		}
		return matches
	})

	historyPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, shellHistoryFile)
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	for {
		input, err := line.Prompt("fsm> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		verb, rest := strings.ToLower(fields[0]), fields[1:]
		if verb == "quit" || verb == "exit" {
			break
		}
		if err := dispatchShell(ctrl, verb, rest); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}

	fmt.Println("bye")
	return nil
}

func dispatchShell(ctrl *steer.Controller, verb string, args []string) error {
	switch verb {
	case "set":
		return shellSet(ctrl, args)
	case "get":
		return shellGet(ctrl, args)
	case "move":
		return shellMove(ctrl, args)
	case "center":
		return shellCenter(ctrl, args)
	case "init":
		if !ctrl.Initialize() {
			return fmt.Errorf("send failed")
		}
		fmt.Println("INITIALIZE sent")
		return nil
	case "save":
		if !ctrl.Save() {
			return fmt.Errorf("send failed")
		}
		fmt.Println("SAVE sent")
		return nil
	case "stats":
		fmt.Print(ctrl.Stats().String())
		return nil
	case "help":
		fmt.Println("set <axis> <value> | get [axis] | move <x> <y> | center [axis ...]")
		fmt.Println("init | save | stats | help | quit")
		return nil
	}
	return fmt.Errorf("unknown command %q (try 'help')", verb)
}

func shellSet(ctrl *steer.Controller, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set <axis> <value>")
	}
	axis, err := steer.ParseAxis(args[0])
	if err != nil {
		return err
	}
	value, err := parseShellValue(args[1])
	if err != nil {
		return err
	}
	if !ctrl.Set(axis, value) {
		return fmt.Errorf("send failed")
	}
	fmt.Printf("%s = 0x%04X\n", axis, value)
	return nil
}

func shellGet(ctrl *steer.Controller, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: get [axis]")
	}

	printEntry := func(channel uint8) {
		entry := ctrl.Table().Entry(channel)
		if !entry.Known {
			fmt.Printf("  ch%d %-14s (unknown)\n", channel, dim.FormatChannel(channel))
			return
		}
		fmt.Printf("  ch%d %-14s 0x%04X (%d)  %s\n",
			channel, dim.FormatChannel(channel), entry.Value, entry.Value,
			entry.UpdatedAt.Format("15:04:05.000"))
	}

	if len(args) == 1 {
		axis, err := steer.ParseAxis(args[0])
		if err == nil {
			printEntry(axis.Channel())
			return nil
		}
		channel, perr := strconv.ParseUint(args[0], 0, 8)
		if perr != nil || channel >= uint64(dim.ChannelCommand) {
			return err
		}
		printEntry(uint8(channel))
		return nil
	}

	for channel := uint8(0); channel < dim.ChannelCommand; channel++ {
		printEntry(channel)
	}
	return nil
}

func shellMove(ctrl *steer.Controller, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: move <x> <y>")
	}
	x, err := parseShellValue(args[0])
	if err != nil {
		return err
	}
	y, err := parseShellValue(args[1])
	if err != nil {
		return err
	}

	targets := map[steer.Axis]uint16{steer.AxisX: x, steer.AxisY: y}
	ticks := 0
	for ctrl.MoveToTarget(targets) {
		if !ctrl.Attached() {
			return fmt.Errorf("link lost after %d ticks", ticks)
		}
		ticks++
		time.Sleep(steer.MoveTickPeriod)
	}
	fmt.Printf("at (0x%04X, 0x%04X) after %d ticks\n", x, y, ticks+1)
	return nil
}

func shellCenter(ctrl *steer.Controller, args []string) error {
	axes := make([]steer.Axis, 0, len(args))
	for _, arg := range args {
		axis, err := steer.ParseAxis(arg)
		if err != nil {
			return err
		}
		axes = append(axes, axis)
	}
	if !ctrl.Center(axes...) {
		return fmt.Errorf("send failed")
	}
	if len(axes) == 0 {
		fmt.Printf("all axes = 0x%04X\n", dim.ValueCenter)
	} else {
		for _, axis := range axes {
			fmt.Printf("%s = 0x%04X\n", axis, dim.ValueCenter)
		}
	}
	return nil
}

func parseShellValue(s string) (uint16, error) {
	value, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", s, err)
	}
	return uint16(value), nil
}
