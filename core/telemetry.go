//go:build tinygo

package core

import "github.com/Ailikez/rt-soldering-pen/protocol"

// InitHeatingCommands registers the wire-protocol surface for the heating
// engine: preset selection/editing from the host, and a status response
// carrying every telemetry getter from the engine. This rides the same
// command registry and dictionary used for bootstrap commands, so the
// host discovers it the same way it discovers get_uptime/get_clock.
func InitHeatingCommands() {
	RegisterCommand("select_preset", "preset=%c", handleSelectPreset)
	RegisterCommand("edit_preset_select", "preset=%c", handleEditPresetSelect)
	RegisterCommand("edit_preset_add", "delta=%i", handleEditPresetAdd)
	RegisterCommand("edit_preset_end", "", handleEditPresetEnd)
	RegisterCommand("query_heating_status", "", handleQueryHeatingStatus)

	RegisterResponse("heating_status", "state=%c requested_power_mw=%i power_mw=%i "+
		"energy_mwh=%i steady_ms=%i pen_resistance_mo=%i "+
		"cpu_voltage_mv_heat=%i cpu_voltage_mv_idle=%i "+
		"supply_voltage_mv_heat=%i supply_voltage_mv_idle=%i supply_voltage_mv_drop=%i "+
		"pen_current_ma_heat=%i pen_current_ma_idle=%i "+
		"cpu_temperature_mc=%i pen_temperature_mc=%i real_pen_temperature_mc=%i "+
		"heating_element_status=%c pen_sensor_status=%c "+
		"selected_preset=%c edited_preset=%i is_standby=%c preset_temperature=%i")
}

func requireHeating() *Heating {
	h := GlobalHeating()
	if h == nil {
		panic("heating engine not configured")
	}
	return h
}

func handleSelectPreset(data *[]byte) error {
	preset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	requireHeating().Preset().Select(int(preset))
	return nil
}

func handleEditPresetSelect(data *[]byte) error {
	preset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	requireHeating().Preset().EditSelect(int(preset))
	return nil
}

func handleEditPresetAdd(data *[]byte) error {
	delta, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	requireHeating().Preset().EditAdd(int(delta))
	return nil
}

func handleEditPresetEnd(_ *[]byte) error {
	requireHeating().Preset().EditEnd()
	return nil
}

func handleQueryHeatingStatus(_ *[]byte) error {
	SendHeatingStatus(requireHeating())
	return nil
}

// SendHeatingStatus emits a heating_status response describing the
// engine's full telemetry surface. Exported so the main loop can push it
// unsolicited (e.g. once per completed period) as well as on request.
func SendHeatingStatus(h *Heating) {
	p := h.Preset()
	edited := p.GetEdited()
	standby := 0
	if p.IsStandby() {
		standby = 1
	}

	SendResponse("heating_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(h.state))
		protocol.EncodeVLQInt(output, int32(h.GetRequestedPowerMW()))
		protocol.EncodeVLQInt(output, int32(h.GetPowerMW()))
		protocol.EncodeVLQInt(output, int32(h.GetEnergyMWh()))
		protocol.EncodeVLQInt(output, int32(h.GetSteadyMS()))
		protocol.EncodeVLQInt(output, int32(h.GetPenResistanceMO()))
		protocol.EncodeVLQInt(output, int32(h.GetCPUVoltageMVHeat()))
		protocol.EncodeVLQInt(output, int32(h.GetCPUVoltageMVIdle()))
		protocol.EncodeVLQInt(output, int32(h.GetSupplyVoltageMVHeat()))
		protocol.EncodeVLQInt(output, int32(h.GetSupplyVoltageMVIdle()))
		protocol.EncodeVLQInt(output, int32(h.GetSupplyVoltageMVDrop()))
		protocol.EncodeVLQInt(output, int32(h.GetPenCurrentMAHeat()))
		protocol.EncodeVLQInt(output, int32(h.GetPenCurrentMAIdle()))
		protocol.EncodeVLQInt(output, int32(h.GetCPUTemperatureMC()))
		protocol.EncodeVLQInt(output, int32(h.GetPenTemperatureMC()))
		protocol.EncodeVLQInt(output, int32(h.RealPenTemperatureMC()))
		protocol.EncodeVLQUint(output, uint32(h.GetHeatingElementStatus()))
		protocol.EncodeVLQUint(output, uint32(h.GetPenSensorStatus()))
		protocol.EncodeVLQUint(output, uint32(p.GetSelected()))
		protocol.EncodeVLQInt(output, int32(edited))
		protocol.EncodeVLQUint(output, uint32(standby))
		protocol.EncodeVLQInt(output, int32(p.GetTemperature()))
	})
}
