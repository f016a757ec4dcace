// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsoptics/fsmctl/pkg/dim"
	"github.com/fsoptics/fsmctl/pkg/steer"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB3
baud: 115200
url: ws://bridge.local/dim
username: operator
step_size: 128
strict: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "/dev/ttyUSB3" {
		t.Errorf("Port: %q", cfg.Port)
	}
	if cfg.Baud != 115200 {
		t.Errorf("Baud: %d", cfg.Baud)
	}
	if cfg.URL != "ws://bridge.local/dim" {
		t.Errorf("URL: %q", cfg.URL)
	}
	if cfg.Username != "operator" {
		t.Errorf("Username: %q", cfg.Username)
	}
	if cfg.StepSize != 128 {
		t.Errorf("StepSize: %d", cfg.StepSize)
	}
	if !cfg.Strict {
		t.Error("Strict should be true")
	}
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeConfig(t, "port: /dev/ttyACM0\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "/dev/ttyACM0" {
		t.Errorf("Port: %q", cfg.Port)
	}
	if cfg.Baud != 0 || cfg.URL != "" || cfg.StepSize != 0 || cfg.Strict {
		t.Errorf("unset fields should stay zero: %+v", cfg)
	}
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadConfig(path); err == nil {
		t.Error("explicitly named missing file should be an error")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed YAML should be an error")
	}
}

func TestLoadConfig_RejectsNegativeBaud(t *testing.T) {
	path := writeConfig(t, "baud: -9600\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("negative baud should be an error")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{}).Validate(); err != nil {
		t.Errorf("zero config should validate, got %v", err)
	}
	if err := (&Config{Baud: 460800}).Validate(); err != nil {
		t.Errorf("valid baud should pass, got %v", err)
	}
	if err := (&Config{Baud: -1}).Validate(); err == nil {
		t.Error("negative baud should fail validation")
	}
}

// resetRootFlags puts the root command's flag globals into their
// registration defaults and restores whatever was there afterwards,
// so merge tests do not leak state into each other.
func resetRootFlags(t *testing.T) {
	t.Helper()

	prevPort, prevBaud := portName, baudRate
	prevURL, prevUser := wsURL, wsUsername
	prevStep, prevStrict, prevConfig := stepSize, strictMode, configPath

	portName, baudRate = "", dim.DefaultBaudRate
	wsURL, wsUsername = "", ""
	stepSize, strictMode, configPath = steer.DefaultStepSize, false, ""
	for _, name := range []string{"port", "baud", "url", "username", "step", "strict"} {
		rootCmd.PersistentFlags().Lookup(name).Changed = false
	}

	t.Cleanup(func() {
		portName, baudRate = prevPort, prevBaud
		wsURL, wsUsername = prevURL, prevUser
		stepSize, strictMode, configPath = prevStep, prevStrict, prevConfig
		for _, name := range []string{"port", "baud", "url", "username", "step", "strict"} {
			rootCmd.PersistentFlags().Lookup(name).Changed = false
		}
	})
}

func TestApplyConfigDefaults_FileFillsUnsetFlags(t *testing.T) {
	resetRootFlags(t)
	configPath = writeConfig(t, `
port: /dev/ttyUSB7
baud: 230400
step_size: 64
strict: true
`)

	if err := applyConfigDefaults(rootCmd, nil); err != nil {
		t.Fatalf("applyConfigDefaults: %v", err)
	}
	if portName != "/dev/ttyUSB7" {
		t.Errorf("port should come from the file, got %q", portName)
	}
	if baudRate != 230400 {
		t.Errorf("baud should come from the file, got %d", baudRate)
	}
	if stepSize != 64 {
		t.Errorf("step size should come from the file, got %d", stepSize)
	}
	if !strictMode {
		t.Error("strict should come from the file")
	}
}

func TestApplyConfigDefaults_ChangedFlagWins(t *testing.T) {
	resetRootFlags(t)
	configPath = writeConfig(t, "port: /dev/from-file\nbaud: 230400\n")

	if err := rootCmd.PersistentFlags().Set("baud", "115200"); err != nil {
		t.Fatalf("set baud flag: %v", err)
	}

	if err := applyConfigDefaults(rootCmd, nil); err != nil {
		t.Fatalf("applyConfigDefaults: %v", err)
	}
	if baudRate != 115200 {
		t.Errorf("flag given on the command line should win, got %d", baudRate)
	}
	if portName != "/dev/from-file" {
		t.Errorf("untouched flag should take the file value, got %q", portName)
	}
}

func TestApplyConfigDefaults_BadFileFailsRun(t *testing.T) {
	resetRootFlags(t)
	configPath = writeConfig(t, "baud: -3\n")

	if err := applyConfigDefaults(rootCmd, nil); err == nil {
		t.Error("invalid config file should abort the command")
	}
}
