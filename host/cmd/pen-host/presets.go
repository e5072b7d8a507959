package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ailikez/rt-soldering-pen/host/mcu"
)

// presetFile is the host-side cache of preset temperatures, since the
// wire protocol only reports the currently-selected preset's target, not
// every preset's value at once. It is only ever a local convenience: the
// MCU remains the source of truth while connected.
type presetFile struct {
	Temperatures []int `yaml:"temperatures_mC"`
}

func loadPresetFile(path string) (*presetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &pf, nil
}

func savePresetFile(path string, pf *presetFile) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyPresetFile replays each stored preset's temperature to the MCU by
// editing it to its absolute stored value: since edit_preset_add is
// relative, this first reads the live target via a status query to
// compute the delta needed.
func applyPresetFile(conn *mcu.MCU, pf *presetFile) error {
	for i, target := range pf.Temperatures {
		if err := conn.SelectPreset(i); err != nil {
			return fmt.Errorf("preset %d: select failed: %w", i, err)
		}
		if err := conn.QueryHeatingStatus(); err != nil {
			return fmt.Errorf("preset %d: status query failed: %w", i, err)
		}
		time.Sleep(200 * time.Millisecond) // let the async heating_status response land
		current := lastKnownPresetTemperature
		delta := target - current

		if err := conn.EditPresetSelect(i); err != nil {
			return fmt.Errorf("preset %d: edit_select failed: %w", i, err)
		}
		if err := conn.EditPresetAdd(delta); err != nil {
			return fmt.Errorf("preset %d: edit_add failed: %w", i, err)
		}
		if err := conn.EditPresetEnd(); err != nil {
			return fmt.Errorf("preset %d: edit_end failed: %w", i, err)
		}
	}
	return nil
}

// lastKnownPresetTemperature is updated by printStatus so applyPresetFile
// can compute a relative delta from the most recent status response.
var lastKnownPresetTemperature int
