//go:build rp2040 || rp2350

package main

import (
	"github.com/Ailikez/rt-soldering-pen/core"
	"machine"
)

// max31855 register bit layout, 32-bit read.
// [31:18] thermocouple temperature, 0.25C/LSB, sign-extended
// [17]    reserved
// [16]    fault flag (any of the three below)
// [15:4]  cold-junction (internal) temperature, 0.0625C/LSB, sign-extended
// [3]     reserved
// [2]     SCV: shorted to VCC
// [1]     SCG: shorted to ground
// [0]     OC: open circuit
const (
	max31855FaultOpen     = 1 << 0
	max31855FaultShortGnd = 1 << 1
	max31855FaultShortVCC = 1 << 2
	max31855FaultAny      = 1 << 16
)

// Thermocouple drives a MAX31855 over the core SPI HAL to provide the
// engine's pen and cpu-side temperature readings. Each measurement is a
// single 4-byte read; there is no separate "start" and "convert" phase on
// this part, so MeasureHeatStart/MeasureIdleStart just trigger an
// immediate transfer and MeasureIsDone always reports true.
type Thermocouple struct {
	bus  interface{} // handle returned by core.SPIDriver.ConfigureBus
	cs   machine.Pin
	last [4]byte

	penTemperatureMC int
	cpuTemperatureMC int
	sensorOK         bool
}

// NewThermocouple configures a MAX31855 on the given SPI bus through the
// core SPI HAL, with cs as its dedicated chip-select pin.
func NewThermocouple(busID core.SPIBusID, cs machine.Pin) (*Thermocouple, error) {
	bus, err := core.MustSPI().ConfigureBus(core.SPIConfig{BusID: busID, Mode: 0, Rate: 1_000_000})
	if err != nil {
		return nil, err
	}

	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	return &Thermocouple{bus: bus, cs: cs}, nil
}

func (t *Thermocouple) sample() {
	var wBuf [4]byte
	t.cs.Low()
	core.MustSPI().Transfer(t.bus, wBuf[:], t.last[:])
	t.cs.High()

	word := uint32(t.last[0])<<24 | uint32(t.last[1])<<16 | uint32(t.last[2])<<8 | uint32(t.last[3])

	if word&max31855FaultAny != 0 {
		t.sensorOK = false
		return
	}
	t.sensorOK = true

	coldRaw := int32(int16(word<<16>>16) >> 4)
	t.cpuTemperatureMC = int(coldRaw) * 625 / 10

	// The MAX31855 reports the cold-junction-compensated hot-junction
	// temperature; subtract the cold junction to get the differential.
	thermRaw := int32(int16(word>>16) >> 2)
	t.penTemperatureMC = int(thermRaw)*250 - t.cpuTemperatureMC
}

// MeasureHeatStart and MeasureIdleStart both sample the same physical
// channel; the engine distinguishes heat/idle phases for the current
// sensor, not the thermocouple.
func (t *Thermocouple) MeasureHeatStart()   { t.sample() }
func (t *Thermocouple) MeasureIdleStart()   { t.sample() }
func (t *Thermocouple) MeasureIsDone() bool { return true }

func (t *Thermocouple) PenTemperatureMC() int { return t.penTemperatureMC }
func (t *Thermocouple) CPUTemperatureMC() int { return t.cpuTemperatureMC }
func (t *Thermocouple) IsPenSensorOK() bool   { return t.sensorOK }
