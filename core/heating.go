package core

// Heating cycle constants, all integer, matching the original firmware's
// fixed-point units: temperatures in milli-degrees C, power in mW, energy
// in microwatt-ticks.
const (
	PeriodMS    = 150   // nominal period, ms
	PeriodMinMS = 50    // minimum viable period, ms
	StandbyMS   = 30000 // steady time before auto-standby, ms

	StabilizeMS = 2 // post-heat settling window, ms
	IdleMinMS   = 8 // guaranteed idle measurement window, ms

	HeatingPowerMaxMW = 40000 // PID output clamp, mW
	HeatingMinPowerMW = 100   // below this, skip heating entirely, mW

	PenMaxCurrentMA = 6000 // over-current trip, mA
)

// pidKp, pidKi, pidKd are package vars rather than consts so host tooling
// can load site-tuned gains from configuration before Init runs.
var (
	pidKp = 700
	pidKi = 200
	pidKd = 100
)

// SetPIDGains overrides the PID gains Init applies. Call before Init.
func SetPIDGains(kp, ki, kd int) {
	pidKp = kp
	pidKi = ki
	pidKd = kd
}

// heatingState enumerates the five-state cycle.
type heatingState uint8

const (
	StateStop heatingState = iota
	StateStart
	StateHeating
	StateStabilize
	StateIdle
)

// Heating is the five-state heating-cycle engine. It owns the PID
// controller, the preset store, and every measurement accumulator; the
// ADC and heater are externally-owned façades it drives.
type Heating struct {
	preset *Preset
	pid    PID
	adc    SensorADC
	heater Heater

	state heatingState

	uptimeTicks    uint64
	periodTicks    int
	remainingTicks int
	measureTicks   int
	measurements   int
	steadyTicks    int64

	powerUWPT          int64
	requestedPowerUWPT int64
	energyUWT          int64

	requestedPowerMW    int
	cpuVoltageMVHeat    int
	cpuVoltageMVIdle    int
	supplyVoltageMVHeat int
	supplyVoltageMVIdle int
	supplyVoltageMVDrop int
	penCurrentMAHeat    int
	penCurrentMAIdle    int
	penResistanceMO     int
	penTemperatureMC    int
	cpuTemperatureMC    int

	avgReqPower      int
	avgReqPowerShort int

	heatingElementStatus HeatingElementStatus
	penSensorStatus      PenSensorStatus
}

// NewHeating wires the engine to its ADC and heater façades and the
// default preset store.
func NewHeating(adc SensorADC, heater Heater) *Heating {
	return &Heating{
		preset: NewPreset(),
		adc:    adc,
		heater: heater,
		state:  StateStop,
	}
}

// Preset returns the owned preset store, exposed to the UI between
// process calls.
func (h *Heating) Preset() *Preset {
	return h.preset
}

// Init configures the PID controller's gains, sample rate, and output
// clamp. fs is derived from the period the same way the original firmware
// derives it: samples-per-second at one sample per period.
func (h *Heating) Init() {
	fs := 1000 / PeriodMS
	h.pid.SetConstants(pidKp, pidKi, pidKd, fs, HeatingPowerMaxMW)
}

// Start computes the next period's requested power and arms the engine.
// If the pen sensor isn't OK the PID stays reset and requested power is
// zero, so heating never resumes on a broken measurement chain.
func (h *Heating) Start() {
	powerMW := 0
	if h.penSensorStatus != SensorOK {
		h.pid.Reset()
	} else {
		powerMW = h.pid.Process(h.RealPenTemperatureMC(), h.preset.GetTemperature())
	}
	h.periodTicks = int(MSToTicks(PeriodMS))
	h.remainingTicks += h.periodTicks
	h.requestedPowerMW = powerMW
	h.requestedPowerUWPT = int64(powerMW) * int64(h.periodTicks) * 1000
	h.recordStateChange(StateStart)
}

// Process advances the state machine by deltaTicks. It returns false only
// while in STOP, signalling the host should call Start to begin a new
// period; it never blocks, so a pending measurement simply leaves the
// engine in HEATING or IDLE until the next call.
func (h *Heating) Process(deltaTicks int) bool {
	h.uptimeTicks += uint64(deltaTicks)
	h.remainingTicks -= deltaTicks
	h.steadyTicks += int64(deltaTicks)

	switch h.state {
	case StateStop:
		h.stateStop()
		return false
	case StateStart:
		h.stateStart()
	case StateHeating:
		h.stateHeating(deltaTicks)
	case StateStabilize:
		h.stateStabilize(deltaTicks)
	case StateIdle:
		h.stateIdle()
	}
	return true
}

func (h *Heating) stateStop() {
	stop := h.penSensorStatus != SensorOK
	stop = stop || h.heatingElementStatus == HeatingShorted
	stop = stop || h.heatingElementStatus == HeatingBroken
	stop = stop || h.GetSteadyMS() > StandbyMS
	if stop {
		h.preset.SetStandby()
	}
}

func (h *Heating) stateStart() {
	// Zero the heat-phase accumulators; pen_current_ma_idle is left alone
	// here because the compensation step in stateHeating reads the value
	// the previous period's idle phase measured.
	h.measureTicks = 0
	h.measurements = 0
	h.cpuVoltageMVHeat = 0
	h.supplyVoltageMVHeat = 0
	h.penCurrentMAHeat = 0
	h.powerUWPT = 0

	if h.requestedPowerMW < HeatingMinPowerMW {
		h.adc.MeasureIdleStart()
		h.cpuVoltageMVIdle = 0
		h.supplyVoltageMVIdle = 0
		h.penCurrentMAIdle = 0
		h.cpuTemperatureMC = 0
		h.penTemperatureMC = 0
		h.requestedPowerMW = 0
		h.requestedPowerUWPT = 0
		h.steadyTicks = 0
		h.recordStateChange(StateIdle)
		return
	}

	// Auto-standby filter: short/long EMAs of requested power. A
	// significant divergence is "activity" and resets the steady timer.
	h.avgReqPowerShort = (2*h.avgReqPowerShort + h.requestedPowerMW) / 3
	h.avgReqPower = (9*h.avgReqPower + h.requestedPowerMW) / 10
	derivative := h.avgReqPowerShort - h.avgReqPower
	if derivative > 150 || derivative < -200 {
		h.steadyTicks = 0
	}

	h.heater.On()
	h.adc.MeasureHeatStart()
	h.heatingElementStatus = HeatingUnknown
	h.penSensorStatus = SensorUnknown
	h.recordStateChange(StateHeating)
}

func (h *Heating) stateHeating(deltaTicks int) {
	h.measureTicks += deltaTicks
	if !h.adc.MeasureIsDone() {
		return
	}
	h.measurements++
	cpuV := h.adc.CPUVoltageMV()
	supplyV := h.adc.SupplyVoltageMV()
	current := h.adc.PenCurrentMA()
	h.cpuVoltageMVHeat += cpuV
	h.supplyVoltageMVHeat += supplyV
	h.penCurrentMAHeat += current
	h.powerUWPT += int64(supplyV) * int64(current) * int64(h.measureTicks)
	h.measureTicks = 0

	avgCurrent := h.penCurrentMAHeat / h.measurements
	overCurrent := avgCurrent > PenMaxCurrentMA
	stop := overCurrent
	stop = stop || h.powerUWPT >= h.requestedPowerUWPT
	stop = stop || int64(h.remainingTicks) < MSToTicks(StabilizeMS+IdleMinMS)

	if !stop {
		h.adc.MeasureHeatStart()
		return
	}

	if overCurrent {
		RecordTiming(EvtOverCurrent, uint8(h.state), uint32(h.uptimeTicks), uint32(avgCurrent), uint32(PenMaxCurrentMA))
	}

	h.heater.Off()
	h.energyUWT += h.powerUWPT
	h.cpuVoltageMVHeat /= h.measurements
	h.supplyVoltageMVHeat /= h.measurements
	h.penCurrentMAHeat /= h.measurements
	// Compensate for the sensor's own idle draw, then take the absolute
	// value since a reversed current sensor reads negative.
	h.penCurrentMAHeat -= h.penCurrentMAIdle
	if h.penCurrentMAHeat < 0 {
		h.penCurrentMAHeat = -h.penCurrentMAHeat
	}
	if h.penCurrentMAHeat > 10 {
		h.penResistanceMO = h.supplyVoltageMVHeat * 1000 / h.penCurrentMAHeat
	} else {
		h.penResistanceMO = 1000000000
	}
	h.supplyVoltageMVDrop = h.supplyVoltageMVHeat - h.supplyVoltageMVIdle

	prevHeatingStatus := h.heatingElementStatus
	h.heatingElementStatus = classifyResistance(h.penResistanceMO)
	if h.heatingElementStatus != prevHeatingStatus {
		RecordTiming(EvtDiagChange, uint8(h.heatingElementStatus), uint32(h.uptimeTicks), uint32(prevHeatingStatus), uint32(h.penResistanceMO))
	}

	h.recordStateChange(StateStabilize)
}

func (h *Heating) stateStabilize(deltaTicks int) {
	h.measureTicks += deltaTicks
	if int64(h.measureTicks) < MSToTicks(StabilizeMS) {
		return
	}
	h.adc.MeasureIdleStart()
	h.measureTicks = 0
	h.measurements = 0
	h.cpuVoltageMVIdle = 0
	h.supplyVoltageMVIdle = 0
	h.penCurrentMAIdle = 0
	h.cpuTemperatureMC = 0
	h.penTemperatureMC = 0
	h.recordStateChange(StateIdle)
}

func (h *Heating) stateIdle() {
	if !h.adc.MeasureIsDone() {
		return
	}
	h.cpuVoltageMVIdle += h.adc.CPUVoltageMV()
	h.supplyVoltageMVIdle += h.adc.SupplyVoltageMV()
	h.penCurrentMAIdle += h.adc.PenCurrentMA()
	h.cpuTemperatureMC += h.adc.CPUTemperatureMC()
	h.penTemperatureMC += h.adc.PenTemperatureMC()
	h.measurements++

	if h.remainingTicks > 0 {
		h.adc.MeasureIdleStart()
		return
	}

	h.cpuVoltageMVIdle /= h.measurements
	h.supplyVoltageMVIdle /= h.measurements
	h.penCurrentMAIdle /= h.measurements
	h.cpuTemperatureMC /= h.measurements
	h.penTemperatureMC /= h.measurements

	prevSensorStatus := h.penSensorStatus
	if h.adc.IsPenSensorOK() {
		h.penSensorStatus = SensorOK
	} else {
		h.penSensorStatus = SensorBroken
		h.heatingElementStatus = HeatingUnknown
	}
	if h.penSensorStatus != prevSensorStatus {
		RecordTiming(EvtDiagChange, uint8(h.penSensorStatus), uint32(h.uptimeTicks), uint32(prevSensorStatus), 0)
	}

	h.recordStateChange(StateStop)
}

// RealPenTemperatureMC is the thermocouple differential plus cold-junction
// (cpu-side) compensation.
func (h *Heating) RealPenTemperatureMC() int {
	return h.cpuTemperatureMC + h.penTemperatureMC
}

// GetRequestedPowerMW returns the power the PID asked for this period.
func (h *Heating) GetRequestedPowerMW() int { return h.requestedPowerMW }

// GetPowerMW returns the actual delivered power this period.
func (h *Heating) GetPowerMW() int {
	if h.periodTicks == 0 {
		return 0
	}
	return int(h.powerUWPT / int64(h.periodTicks) / 1000)
}

// GetPenResistanceMO returns the last measured heater resistance.
func (h *Heating) GetPenResistanceMO() int { return h.penResistanceMO }

// GetEnergyMWh returns cumulative delivered energy.
func (h *Heating) GetEnergyMWh() int {
	return int(h.energyUWT / int64(CoreFreqHz) / 1000 / 3600)
}

// GetSteadyMS returns how long requested power has been stable.
func (h *Heating) GetSteadyMS() int {
	return int(h.steadyTicks / int64(CoreFreqHz/1000))
}

func (h *Heating) GetCPUVoltageMVHeat() int    { return h.cpuVoltageMVHeat }
func (h *Heating) GetCPUVoltageMVIdle() int    { return h.cpuVoltageMVIdle }
func (h *Heating) GetSupplyVoltageMVHeat() int { return h.supplyVoltageMVHeat }
func (h *Heating) GetSupplyVoltageMVIdle() int { return h.supplyVoltageMVIdle }
func (h *Heating) GetSupplyVoltageMVDrop() int { return h.supplyVoltageMVDrop }
func (h *Heating) GetPenCurrentMAHeat() int    { return h.penCurrentMAHeat }
func (h *Heating) GetPenCurrentMAIdle() int    { return h.penCurrentMAIdle }
func (h *Heating) GetCPUTemperatureMC() int    { return h.cpuTemperatureMC }
func (h *Heating) GetPenTemperatureMC() int    { return h.penTemperatureMC }

// GetHeatingElementStatus returns the most recent electrical
// classification of the heater.
func (h *Heating) GetHeatingElementStatus() HeatingElementStatus { return h.heatingElementStatus }

// GetPenSensorStatus returns the most recent thermocouple classification.
func (h *Heating) GetPenSensorStatus() PenSensorStatus { return h.penSensorStatus }

// AvgRequestedPowerMW and AvgRequestedPowerShortMW expose the auto-standby
// filter state for telemetry, not just its boolean outcome.
func (h *Heating) AvgRequestedPowerMW() int      { return h.avgReqPower }
func (h *Heating) AvgRequestedPowerShortMW() int { return h.avgReqPowerShort }

// EmergencyStop forces the heater off and the preset into standby
// immediately, regardless of which state the cycle is currently in. This
// is the domain's equivalent of a firmware-wide shutdown: unlike the
// generic OID-addressed shutdown used for stepper/endstop hardware, there
// is exactly one heater to silence.
func (h *Heating) EmergencyStop() {
	h.heater.Off()
	h.preset.SetStandby()
	h.recordStateChange(StateStop)
}

// recordStateChange transitions the engine to next, recording the
// transition in the timing ring for post-mortem analysis.
func (h *Heating) recordStateChange(next heatingState) {
	RecordTiming(EvtStateChange, uint8(next), uint32(h.uptimeTicks), uint32(h.state), 0)
	h.state = next
}

// globalHeating is the engine instance wired up by target main(). Command
// handlers reach it through SetGlobalHeating/GlobalHeating rather than a
// constructor argument, matching the package's other global-singleton
// driver registrations (MustADC, MustSPI, MustI2C).
var globalHeating *Heating

// SetGlobalHeating registers the engine instance for command handlers.
func SetGlobalHeating(h *Heating) {
	globalHeating = h
}

// GlobalHeating returns the registered engine instance, or nil if none has
// been set.
func GlobalHeating() *Heating {
	return globalHeating
}
