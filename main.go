// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics
//
// fsmctl - Fast-Steering-Mirror Digital Interface CLI
//
// A CLI tool for driving and monitoring the DIM serial interface of a
// two-axis fast-steering mirror.

package main

import (
	"os"

	"github.com/fsoptics/fsmctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
