//go:build rp2040 || rp2350

package main

import "machine"

// HeaterGPIO drives the heater MOSFET gate directly from a GPIO pin. There
// is no PWM here: the heating engine modulates power by choosing the
// on-duration within a fixed period, not by duty-cycling within a sample.
type HeaterGPIO struct {
	pin machine.Pin
}

// NewHeaterGPIO configures pin as a push-pull output, initially off.
func NewHeaterGPIO(pin machine.Pin) *HeaterGPIO {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &HeaterGPIO{pin: pin}
}

func (h *HeaterGPIO) On()  { h.pin.High() }
func (h *HeaterGPIO) Off() { h.pin.Low() }
