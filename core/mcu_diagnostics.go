//go:build tinygo

package core

import "github.com/Ailikez/rt-soldering-pen/protocol"

// mcuTempChannel is the RP2040 pin-enumeration index conventionally used
// for the silicon temperature sensor; target code maps it onto the
// internal ADC channel.
const mcuTempChannel ADCChannelID = 34

// InitMCUDiagnosticsCommands registers a query for the MCU's own silicon
// temperature, independent of the thermocouple cold junction reading. This
// rides the same ADC HAL the RP2040 ADC target driver implements.
func InitMCUDiagnosticsCommands() {
	RegisterCommand("query_mcu_temperature", "", handleQueryMCUTemperature)
	RegisterResponse("mcu_temperature", "raw12=%u")
}

func handleQueryMCUTemperature(_ *[]byte) error {
	raw, err := MustADC().ReadRaw(mcuTempChannel)
	if err != nil {
		return err
	}

	SendResponse("mcu_temperature", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(raw))
	})
	return nil
}
