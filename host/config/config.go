// Package config loads the small JSON configuration pen-host and pen-sim
// accept for site-tuned PID gains, resistance thresholds, and preset
// defaults, before wiring a core.Heating.
package config

import (
	"encoding/json"
	"os"

	"github.com/Ailikez/rt-soldering-pen/core"
)

// PIDConfig holds PID gains in the engine's fixed-point scale.
type PIDConfig struct {
	Kp int `json:"kp"`
	Ki int `json:"ki"`
	Kd int `json:"kd"`
}

// ResistanceThresholds holds the electrical-diagnostics boundaries, in
// milliohms.
type ResistanceThresholds struct {
	ShortedMO int `json:"shorted_mo"`
	MinMO     int `json:"min_mo"`
	MaxMO     int `json:"max_mo"`
	BrokenMO  int `json:"broken_mo"`
}

// Config is the top-level JSON document pen-host/pen-sim accept. See Apply
// for which values replace the engine's built-in defaults.
type Config struct {
	PID                  PIDConfig            `json:"pid"`
	ResistanceThresholds ResistanceThresholds `json:"resistance_thresholds"`
	PresetDefaultsMC     []int                `json:"preset_defaults_mC"`
}

// Load reads and parses a JSON config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply pushes the config into core's package-level overrides. The PID
// gains, and likewise the four thresholds, are applied as a group when any
// of them is non-zero (zeros in that group are applied as zero). Preset
// defaults are applied only when exactly core.NPresets values are given.
// Call before core.NewHeating/Heating.Init.
func (c *Config) Apply() {
	if c.PID.Kp != 0 || c.PID.Ki != 0 || c.PID.Kd != 0 {
		core.SetPIDGains(c.PID.Kp, c.PID.Ki, c.PID.Kd)
	}

	rt := c.ResistanceThresholds
	if rt.ShortedMO != 0 || rt.MinMO != 0 || rt.MaxMO != 0 || rt.BrokenMO != 0 {
		core.SetResistanceThresholds(rt.ShortedMO, rt.MinMO, rt.MaxMO, rt.BrokenMO)
	}

	if len(c.PresetDefaultsMC) == core.NPresets {
		var temps [core.NPresets]int
		copy(temps[:], c.PresetDefaultsMC)
		core.SetDefaultPresetTemperatures(temps)
	}
}
