// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Planner  PlannerConfig  `toml:"planner"`
	Reminder ReminderConfig `toml:"reminder"`
}

// PlannerConfig maps study planner defaults.
type PlannerConfig struct {
	TotalMinutes *float64 `toml:"total-minutes"`
	MinMinutes   *float64 `toml:"min-minutes"`
	RoundTo      *float64 `toml:"round-to"`
	Start        *string  `toml:"start"`
	End          *string  `toml:"end"`
}

// ReminderConfig maps reminder settings.
type ReminderConfig struct {
	Command *string `toml:"command"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
