//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"github.com/Ailikez/rt-soldering-pen/core"
	"github.com/Ailikez/rt-soldering-pen/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	// USB connection state tracking
	lastUSBActivity          uint64 // Last time we successfully read/wrote USB data
	lastWriteSuccess         uint64 // Last time we successfully wrote USB data
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32

	heating *core.Heating
)

// heaterPin, thermocoupleSPIBus/CS and currentSenseI2CBus pick the
// physical wiring for the default board layout.
const (
	heaterPin          = machine.GPIO28
	thermocoupleSPIBus = core.SPIBusID(1) // spi0b: sck=GPIO6 mosi=GPIO7 miso=GPIO4
	thermocoupleCSPin  = machine.GPIO5
	currentSenseI2CBus = core.I2CBusID(0)
	currentSenseI2CHz  = uint32(400_000)
)

func main() {
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()

	core.InitCoreCommands()
	core.InitMCUDiagnosticsCommands()
	core.InitHeatingCommands()

	core.RegisterEnumeration("pin", rp2040PinNames())

	adcDriver := NewRPAdcDriver()
	core.SetADCDriver(adcDriver)
	if err := adcDriver.Init(core.ADCConfig{}); err != nil {
		return
	}

	core.SetSPIDriver(NewRP2040SPIDriver())
	core.SetI2CDriver(NewRPI2CDriver())

	thermocouple, err := NewThermocouple(thermocoupleSPIBus, thermocoupleCSPin)
	if err != nil {
		return
	}
	currentSense, err := NewCurrentSense(currentSenseI2CBus, currentSenseI2CHz)
	if err != nil {
		return
	}
	frontend := NewPenFrontend(thermocouple, currentSense)
	heaterOut := NewHeaterGPIO(heaterPin)

	heating = core.NewHeating(frontend, heaterOut)
	heating.Init()
	core.SetGlobalHeating(heating)

	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	transport.SetFlushCallback(func() {
		writeUSB()
	})
	core.SetGlobalTransport(transport)

	core.SetResetHandler(func() {
		err = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
		if err != nil {
			return
		}
		err = machine.Watchdog.Start()
		if err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	go usbReaderLoop()

	heating.Start()
	lastPeriodTick := core.GetTime()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)
				messagesReceived++

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			result := outputBuffer.Result()
			if len(result) > 0 {
				writeUSB()
				messagesSent++
			}

			core.CheckPendingReset()
			core.ProcessTimers()

			now := core.GetTime()
			delta := int(int32(now - lastPeriodTick))
			lastPeriodTick = now
			if !heating.Process(delta) {
				core.SendHeatingStatus(heating)
				heating.Start()
			}
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				core.ResetFirmwareState()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			lastUSBActivity = core.GetUptime()

			written := inputBuffer.Write([]byte{data})
			if written == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// rp2040PinNames enumerates the GPIO and ADC pin names the dictionary
// exposes to the host for debug_read/config tooling.
func rp2040PinNames() []string {
	pinNames := make([]string, 35)

	for i := 0; i < 30; i++ {
		pinNames[i] = "gpio" + itoa(i)
	}

	pinNames[30] = "ADC0"
	pinNames[31] = "ADC1"
	pinNames[32] = "ADC2"
	pinNames[33] = "ADC3"
	pinNames[34] = "ADC_TEMPERATURE"

	return pinNames
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) > 0 {
		written := 0
		for written < len(result) {
			n, err := USBWriteBytes(result[written:])
			if err != nil {
				consecutiveWriteFailures++
				if consecutiveWriteFailures > 10 {
					usbWasDisconnected = true
					consecutiveWriteFailures = 0
					outputBuffer.Reset()
					inputBuffer.Reset()
				}
				return
			}
			if n == 0 {
				consecutiveWriteFailures++
				if consecutiveWriteFailures > 10 {
					usbWasDisconnected = true
					consecutiveWriteFailures = 0
					outputBuffer.Reset()
					inputBuffer.Reset()
				}
				return
			}
			written += n
		}
		if written == len(result) {
			consecutiveWriteFailures = 0
			lastWriteSuccess = core.GetUptime()
			outputBuffer.Reset()
		}
	}
}
