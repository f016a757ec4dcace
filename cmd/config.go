// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Mara Voss, FS Optics

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds connection and behavior defaults loaded from a YAML
// config file. Every field is optional; command-line flags override
// whatever the file provides.
type Config struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	StepSize uint16 `yaml:"step_size"`
	Strict   bool   `yaml:"strict"`
}

// DefaultConfigPath returns ~/.config/fsmctl/config.yaml, or "" when
// no home directory can be resolved
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fsmctl", "config.yaml")
}

// LoadConfig reads the config file at path. An empty path selects
// DefaultConfigPath, and a missing default file is not an error: the
// zero Config is returned. An explicitly named file must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if c.Baud < 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	return nil
}
