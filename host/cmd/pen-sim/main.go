// pen-sim drives the heating engine against a MockADC/MockHeater, replaying
// the same fault scenarios exercised by core's test suite, for exploring
// engine behavior without hardware attached. With -webui it also serves a
// live telemetry websocket for the browser dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/Ailikez/rt-soldering-pen/core"
	"github.com/Ailikez/rt-soldering-pen/host/config"
	"github.com/Ailikez/rt-soldering-pen/host/mcu"
	"github.com/Ailikez/rt-soldering-pen/host/webui"
)

var (
	scenario   = flag.String("scenario", "cold-start", "one of: cold-start, broken-sensor, shorted-heater, broken-heater, auto-standby")
	webuiAddr  = flag.String("webui", "", "if set, serve a telemetry websocket at this address (e.g. :8080)")
	configPath = flag.String("config", "", "if set, load PID gains/resistance thresholds/preset defaults from this JSON file")
)

func main() {
	flag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		cfg.Apply()
	}

	core.CoreFreqHz = 1_000_000
	adc := core.NewMockADC()
	heater := core.NewMockHeater()
	h := core.NewHeating(adc, heater)
	h.Init()
	h.Preset().Select(0)

	var server *webui.Server
	if *webuiAddr != "" {
		server = webui.NewServer()
		http.HandleFunc("/telemetry", server.Handler())
		go func() {
			log.Printf("webui: serving ws://%s/telemetry", *webuiAddr)
			if err := http.ListenAndServe(*webuiAddr, nil); err != nil {
				log.Printf("webui: server stopped: %v", err)
			}
		}()
	}

	periods := 4
	switch *scenario {
	case "cold-start":
		adc.SensorOK = true
		adc.PenTemperature = 25000
		adc.SupplyVoltage = 5000
		adc.PenCurrentHeat = 3000

	case "broken-sensor":
		adc.SensorOK = false

	case "shorted-heater":
		adc.SensorOK = true
		adc.PenTemperature = 25000
		adc.SupplyVoltage = 2000
		adc.PenCurrentHeat = 9000

	case "broken-heater":
		adc.SensorOK = true
		adc.PenTemperature = 25000
		adc.SupplyVoltage = 5000
		adc.PenCurrentHeat = 5

	case "auto-standby":
		adc.SensorOK = true
		adc.PenTemperature = 25000
		adc.SupplyVoltage = 5000
		adc.PenCurrentHeat = 3000
		periods = 260

	default:
		fmt.Printf("unknown scenario: %s\n", *scenario)
		return
	}

	for i := 0; i < periods; i++ {
		h.Start()
		for h.Process(10000) {
		}
		printPeriod(i, h)
		if server != nil {
			server.Broadcast(snapshot(h))
		}
		if h.Preset().IsStandby() && i > 0 {
			fmt.Println("preset forced to standby, stopping")
			break
		}
	}
}

func printPeriod(i int, h *core.Heating) {
	fmt.Printf("period %3d: requested=%5dmW actual=%5dmW energy=%5dmWh steady=%6dms R=%8dmOhm heater=%s sensor=%s standby=%v\n",
		i, h.GetRequestedPowerMW(), h.GetPowerMW(), h.GetEnergyMWh(), h.GetSteadyMS(),
		h.GetPenResistanceMO(), h.GetHeatingElementStatus(), h.GetPenSensorStatus(), h.Preset().IsStandby())
}

func snapshot(h *core.Heating) mcu.Status {
	p := h.Preset()
	standby := uint32(0)
	if p.IsStandby() {
		standby = 1
	}
	return mcu.Status{
		RequestedPowerMW:     int32(h.GetRequestedPowerMW()),
		PowerMW:              int32(h.GetPowerMW()),
		EnergyMWh:            int32(h.GetEnergyMWh()),
		SteadyMS:             int32(h.GetSteadyMS()),
		PenResistanceMO:      int32(h.GetPenResistanceMO()),
		RealPenTemperatureMC: int32(h.RealPenTemperatureMC()),
		HeatingElementStatus: uint32(h.GetHeatingElementStatus()),
		PenSensorStatus:      uint32(h.GetPenSensorStatus()),
		SelectedPreset:       uint32(p.GetSelected()),
		EditedPreset:         int32(p.GetEdited()),
		IsStandby:            standby,
		PresetTemperature:    int32(p.GetTemperature()),
	}
}
