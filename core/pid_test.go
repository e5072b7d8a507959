package core

import "testing"

func TestPIDOutputClampedNonNegative(t *testing.T) {
	var pid PID
	pid.SetConstants(700, 200, 100, 6, 40000)

	// Measured well above setpoint: error is negative, output must clamp
	// to 0 rather than go negative (the heater cannot cool).
	u := pid.Process(300000, 25000)
	if u != 0 {
		t.Fatalf("expected clamp to 0, got %d", u)
	}
}

func TestPIDOutputClampedToMax(t *testing.T) {
	var pid PID
	pid.SetConstants(700, 200, 100, 6, 40000)

	u := pid.Process(0, 400000)
	if u > 40000 {
		t.Fatalf("expected output clamped to out_max=40000, got %d", u)
	}
}

func TestPIDResetZeroesAccumulators(t *testing.T) {
	var pid PID
	pid.SetConstants(700, 200, 100, 6, 40000)
	pid.Process(25000, 300000)
	pid.Reset()
	if pid.integral != 0 || pid.prevErr != 0 {
		t.Fatalf("expected reset to zero integral and previous error")
	}
}

func TestPIDIntegralAntiWindup(t *testing.T) {
	var pid PID
	pid.SetConstants(700, 200, 100, 6, 40000)

	// Hold a large, constant error for many samples; the integral term
	// must not grow without bound once Ki*integral would exceed out_max.
	for i := 0; i < 1000; i++ {
		pid.Process(0, 400000)
	}
	maxIntegral := pid.outMax * pidGainScale / pid.ki
	if pid.integral > maxIntegral {
		t.Fatalf("integral not clamped: %d > %d", pid.integral, maxIntegral)
	}
}

func TestPIDZeroErrorAtEquilibrium(t *testing.T) {
	var pid PID
	pid.SetConstants(700, 200, 100, 6, 40000)
	u := pid.Process(300000, 300000)
	// With zero error and zero prior integral/derivative, output is zero.
	if u != 0 {
		t.Fatalf("expected zero output at equilibrium with fresh state, got %d", u)
	}
}
