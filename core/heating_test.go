package core

import "testing"

func newTestEngine() (*Heating, *MockADC, *MockHeater) {
	CoreFreqHz = 1_000_000
	adc := NewMockADC()
	heater := NewMockHeater()
	h := NewHeating(adc, heater)
	h.Init()
	return h, adc, heater
}

// runPeriod drives one start()+process()... cycle to completion (state
// returns to STOP), in fixed-size ticks, bailing out if the engine never
// settles so a broken state machine fails the test instead of hanging.
func runPeriod(t *testing.T, h *Heating, stepTicks int) {
	t.Helper()
	h.Start()
	for i := 0; i < 1_000_000; i++ {
		if !h.Process(stepTicks) {
			return
		}
	}
	t.Fatalf("engine did not return to STOP within bound")
}

func TestScenarioS1ColdStart(t *testing.T) {
	h, adc, heater := newTestEngine()
	h.Preset().Select(0) // 300000 mC target

	adc.SensorOK = true
	adc.PenTemperature = 25000 // 25C differential, cpu temperature 0
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 3000
	adc.PenCurrentIdle = 0

	// Period 1: sensor status starts UNKNOWN, so the PID stays reset and
	// the period is idle-only. This is how the engine learns the sensor
	// is OK before the first real heat phase.
	runPeriod(t, h, 1000)
	if h.GetPenSensorStatus() != SensorOK {
		t.Fatalf("expected sensor OK after first idle phase, got %s", h.GetPenSensorStatus())
	}

	// Period 2: sensor OK, PID drives a real heat phase.
	runPeriod(t, h, 1000)

	if got := h.GetHeatingElementStatus(); got != HeatingOK {
		t.Fatalf("expected heating element OK, got %s", got)
	}
	if r := h.GetPenResistanceMO(); r < 1650 || r > 1685 {
		t.Fatalf("pen resistance out of expected range: %d", r)
	}
	if heater.OnCalls != 1 || heater.OffCalls != 1 {
		t.Fatalf("expected exactly one on/off pair, got on=%d off=%d", heater.OnCalls, heater.OffCalls)
	}
}

func TestScenarioS2BrokenSensor(t *testing.T) {
	h, adc, heater := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = false

	for i := 0; i < 3; i++ {
		runPeriod(t, h, 1000)
		if got := h.GetRequestedPowerMW(); got != 0 {
			t.Fatalf("period %d: expected requested power 0 with broken sensor, got %d", i, got)
		}
	}

	if h.GetPenSensorStatus() != SensorBroken {
		t.Fatalf("expected sensor status BROKEN, got %s", h.GetPenSensorStatus())
	}
	if h.GetHeatingElementStatus() != HeatingUnknown {
		t.Fatalf("expected heating element status UNKNOWN, got %s", h.GetHeatingElementStatus())
	}
	if heater.OnCalls != 0 {
		t.Fatalf("expected heater.on to never be called, got %d calls", heater.OnCalls)
	}
}

func TestScenarioS3ShortedHeater(t *testing.T) {
	h, adc, heater := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.PenTemperature = 25000
	adc.SupplyVoltage = 2000
	adc.PenCurrentHeat = 9000 // over PenMaxCurrentMA, trips over-current
	adc.PenCurrentIdle = 0

	runPeriod(t, h, 1000) // prime sensor status to OK
	runPeriod(t, h, 1000) // heat phase trips over-current immediately

	if got := h.GetHeatingElementStatus(); got != HeatingShorted {
		t.Fatalf("expected SHORTED classification, got %s (R=%d)", got, h.GetPenResistanceMO())
	}
	if !h.Preset().IsStandby() {
		t.Fatalf("expected shorted heater to force standby")
	}
	if heater.OnCalls != 1 || heater.OffCalls != 1 {
		t.Fatalf("expected exactly one on/off pair, got on=%d off=%d", heater.OnCalls, heater.OffCalls)
	}
}

func TestScenarioS4BrokenHeater(t *testing.T) {
	h, adc, _ := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.PenTemperature = 25000
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 5 // below the 10mA confidence floor
	adc.PenCurrentIdle = 0

	runPeriod(t, h, 1000)
	runPeriod(t, h, 1000)

	if got := h.GetPenResistanceMO(); got != 1_000_000_000 {
		t.Fatalf("expected resistance pinned to 1e9, got %d", got)
	}
	if got := h.GetHeatingElementStatus(); got != HeatingBroken {
		t.Fatalf("expected BROKEN classification, got %s", got)
	}
	if !h.Preset().IsStandby() {
		t.Fatalf("expected broken heater to force standby")
	}
}

func TestScenarioS5AutoStandby(t *testing.T) {
	h, adc, _ := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.PenTemperature = 25000
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 3000
	adc.PenCurrentIdle = 0

	const maxPeriods = 260
	for i := 0; i < maxPeriods; i++ {
		runPeriod(t, h, 10000)
		if h.Preset().IsStandby() {
			break
		}
	}

	if !h.Preset().IsStandby() {
		t.Fatalf("expected auto-standby after sustained steady demand")
	}
	if ms := h.GetSteadyMS(); ms <= StandbyMS {
		t.Fatalf("expected steady time past the standby threshold, got %d", ms)
	}
}

// invariantADC wraps MockADC and fails the test if the engine ever starts
// a new measurement while a previous one is still outstanding.
type invariantADC struct {
	*MockADC
	t           *testing.T
	outstanding bool
}

func (a *invariantADC) MeasureHeatStart() {
	if a.outstanding {
		a.t.Fatalf("measure_heat_start called while a measurement was outstanding")
	}
	a.outstanding = true
	a.MockADC.MeasureHeatStart()
}

func (a *invariantADC) MeasureIdleStart() {
	if a.outstanding {
		a.t.Fatalf("measure_idle_start called while a measurement was outstanding")
	}
	a.outstanding = true
	a.MockADC.MeasureIdleStart()
}

func (a *invariantADC) MeasureIsDone() bool {
	done := a.MockADC.MeasureIsDone()
	if done {
		a.outstanding = false
	}
	return done
}

func TestOneOutstandingMeasurement(t *testing.T) {
	mock := NewMockADC()
	mock.DelaySamples = 2
	mock.SensorOK = true
	mock.PenTemperature = 25000
	mock.SupplyVoltage = 5000
	mock.PenCurrentHeat = 3000

	adc := &invariantADC{MockADC: mock, t: t}
	heater := NewMockHeater()
	h := NewHeating(adc, heater)
	h.Init()
	h.Preset().Select(0)

	for i := 0; i < 4; i++ {
		runPeriod(t, h, 1000)
	}
}

func TestEnergyMonotonic(t *testing.T) {
	h, adc, _ := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.PenTemperature = 25000
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 3000
	adc.PenCurrentIdle = 0

	prev := 0
	for i := 0; i < 5; i++ {
		runPeriod(t, h, 1000)
		cur := h.GetEnergyMWh()
		if cur < prev {
			t.Fatalf("period %d: energy decreased from %d to %d", i, prev, cur)
		}
		prev = cur
	}
}

func TestFaultLatchingOnSensorLoss(t *testing.T) {
	h, adc, _ := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.PenTemperature = 25000
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 3000
	adc.PenCurrentIdle = 0

	runPeriod(t, h, 1000) // prime sensor OK
	runPeriod(t, h, 1000) // one real heat phase

	adc.SensorOK = false
	runPeriod(t, h, 1000) // idle phase observes the sensor loss

	h.Start()
	if got := h.GetRequestedPowerMW(); got != 0 {
		t.Fatalf("expected requested power 0 once sensor is not OK, got %d", got)
	}
}

func TestRequestedPowerStaysInBounds(t *testing.T) {
	h, adc, _ := newTestEngine()
	h.Preset().Select(0)
	adc.SensorOK = true
	adc.SupplyVoltage = 5000
	adc.PenCurrentHeat = 3000

	temps := []int{-50000, 0, 25000, 300000, 600000}
	for _, temp := range temps {
		adc.PenTemperature = temp
		h.Start()
		got := h.GetRequestedPowerMW()
		if got < 0 || got > HeatingPowerMaxMW {
			t.Fatalf("requested power %d out of bounds for pen temperature %d", got, temp)
		}
	}
}
