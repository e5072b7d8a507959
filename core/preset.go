package core

// NPresets is the number of stored setpoints.
const NPresets = 2

// NoEdit is the distinguished "not editing" value for Preset.edited.
const NoEdit = -1

const (
	minTemperatureMC     = 20 * 1000
	maxTemperatureMC     = 400 * 1000
	standbyTemperatureMC = 0
)

// Preset holds the user-selectable setpoints, the active selection, an
// edit cursor, and the standby flag. It is owned by the Heating engine;
// a UI mutates it only between process() calls.
type Preset struct {
	temperatures [NPresets]int
	selected     int
	edited       int
	standby      bool
}

// defaultPresetTemperaturesMC holds the documented defaults: 300.000 and
// 250.000 degrees C. A package var, not a const array, so host tooling can
// load site-specific preset defaults from configuration before the first
// Preset is constructed.
var defaultPresetTemperaturesMC = [NPresets]int{300 * 1000, 250 * 1000}

// SetDefaultPresetTemperatures overrides the defaults NewPreset applies.
// Call before NewPreset/NewHeating.
func SetDefaultPresetTemperatures(temperaturesMC [NPresets]int) {
	defaultPresetTemperaturesMC = temperaturesMC
}

// NewPreset returns a Preset at the configured defaults, preset 0
// selected, nothing being edited, standby engaged.
func NewPreset() *Preset {
	return &Preset{
		temperatures: defaultPresetTemperaturesMC,
		selected:     0,
		edited:       NoEdit,
		standby:      true,
	}
}

// SetStandby forces standby mode. get_temperature() then reads 0 regardless
// of selection.
func (p *Preset) SetStandby() {
	p.standby = true
}

// IsStandby reports whether standby is engaged.
func (p *Preset) IsStandby() bool {
	return p.standby
}

// Select activates preset i and clears standby. Out-of-range i is a no-op.
func (p *Preset) Select(i int) {
	if i < 0 || i >= NPresets {
		return
	}
	p.selected = i
	p.standby = false
}

// EditSelect points the edit cursor at preset i. Out-of-range i is a no-op.
func (p *Preset) EditSelect(i int) {
	if i < 0 || i >= NPresets {
		return
	}
	p.edited = i
}

// EditEnd clears the edit cursor.
func (p *Preset) EditEnd() {
	p.edited = NoEdit
}

// EditAdd adds val to the temperature under edit and clamps the result to
// [minTemperatureMC, maxTemperatureMC]. No-op if nothing is being edited.
func (p *Preset) EditAdd(val int) {
	if p.edited == NoEdit {
		return
	}
	t := p.temperatures[p.edited] + val
	if t < minTemperatureMC {
		t = minTemperatureMC
	}
	if t > maxTemperatureMC {
		t = maxTemperatureMC
	}
	p.temperatures[p.edited] = t
}

// GetTemperature returns the effective target temperature: 0 while in
// standby, otherwise the selected preset's temperature.
func (p *Preset) GetTemperature() int {
	if p.standby {
		return standbyTemperatureMC
	}
	return p.temperatures[p.selected]
}

// GetPreset returns preset i's stored temperature.
func (p *Preset) GetPreset(i int) int {
	return p.temperatures[i]
}

// GetSelected returns the active preset index.
func (p *Preset) GetSelected() int {
	return p.selected
}

// GetEdited returns the preset index under edit, or NoEdit.
func (p *Preset) GetEdited() int {
	return p.edited
}

// IsEditing reports whether any preset is under edit.
func (p *Preset) IsEditing() bool {
	return p.edited != NoEdit
}

// IsEditingPreset reports whether preset i specifically is under edit.
func (p *Preset) IsEditingPreset(i int) bool {
	return p.edited == i
}
