//go:build rp2040 || rp2350

package main

import (
	"machine"

	"github.com/Ailikez/rt-soldering-pen/core"
	"tinygo.org/x/drivers/ina219"
)

// CurrentSense drives an INA219 high-side current/voltage monitor wired
// across the heater's supply rail. It supplies the heat-phase pen current
// and the supply/cpu rail voltages the diagnostics layer needs to tell a
// shorted heater from a broken one.
type CurrentSense struct {
	dev ina219.Device

	cpuVoltageMV    int
	supplyVoltageMV int
	penCurrentHeat  int
	penCurrentIdle  int
	heatPhase       bool
}

// NewCurrentSense configures an INA219 on the given I2C bus through the
// core I2C HAL, borrowing the underlying machine.I2C handle for the
// tinygo.org/x/drivers ina219 driver, which expects one directly.
func NewCurrentSense(busID core.I2CBusID, frequencyHz uint32) (*CurrentSense, error) {
	if err := core.MustI2C().ConfigureBus(busID, frequencyHz); err != nil {
		return nil, err
	}
	raw, err := core.MustI2C().GetMachineBus(busID)
	if err != nil {
		return nil, err
	}
	bus := raw.(*machine.I2C)

	dev := ina219.New(bus)
	dev.Configure(ina219.Config{})
	return &CurrentSense{dev: dev}, nil
}

func (c *CurrentSense) sample() {
	busMV, _ := c.dev.GetBusVoltage_mV()
	currentMA, _ := c.dev.GetCurrent_mA()

	c.supplyVoltageMV = int(busMV)
	c.cpuVoltageMV = int(busMV)

	if c.heatPhase {
		c.penCurrentHeat = int(currentMA)
	} else {
		c.penCurrentIdle = int(currentMA)
	}
}

func (c *CurrentSense) MeasureHeatStart() {
	c.heatPhase = true
	c.sample()
}

func (c *CurrentSense) MeasureIdleStart() {
	c.heatPhase = false
	c.sample()
}

func (c *CurrentSense) MeasureIsDone() bool { return true }

func (c *CurrentSense) CPUVoltageMV() int    { return c.cpuVoltageMV }
func (c *CurrentSense) SupplyVoltageMV() int { return c.supplyVoltageMV }

func (c *CurrentSense) PenCurrentMA() int {
	if c.heatPhase {
		return c.penCurrentHeat
	}
	return c.penCurrentIdle
}

// PenFrontend composes the thermocouple and current-sense chips behind a
// single core.SensorADC, matching the single-outstanding-measurement
// contract the heating engine relies on: both chips are sampled together
// on each MeasureHeatStart/MeasureIdleStart call, and MeasureIsDone is
// always true since neither part has asynchronous conversion latency worth
// modeling at this polling rate.
type PenFrontend struct {
	temp *Thermocouple
	cur  *CurrentSense
}

// NewPenFrontend combines a Thermocouple and CurrentSense into the
// core.SensorADC the heating engine drives.
func NewPenFrontend(temp *Thermocouple, cur *CurrentSense) *PenFrontend {
	return &PenFrontend{temp: temp, cur: cur}
}

func (f *PenFrontend) MeasureHeatStart() {
	f.temp.MeasureHeatStart()
	f.cur.MeasureHeatStart()
}

func (f *PenFrontend) MeasureIdleStart() {
	f.temp.MeasureIdleStart()
	f.cur.MeasureIdleStart()
}

func (f *PenFrontend) MeasureIsDone() bool { return true }

func (f *PenFrontend) CPUVoltageMV() int    { return f.cur.CPUVoltageMV() }
func (f *PenFrontend) SupplyVoltageMV() int { return f.cur.SupplyVoltageMV() }
func (f *PenFrontend) PenCurrentMA() int    { return f.cur.PenCurrentMA() }
func (f *PenFrontend) CPUTemperatureMC() int { return f.temp.CPUTemperatureMC() }
func (f *PenFrontend) PenTemperatureMC() int { return f.temp.PenTemperatureMC() }
func (f *PenFrontend) IsPenSensorOK() bool   { return f.temp.IsPenSensorOK() }
