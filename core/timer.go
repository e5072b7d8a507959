package core

// CoreFreqHz is the system tick frequency, matching board::Clock::CORE_FREQ
// in the original firmware. The RP2040 target keeps this default, matching
// its 1MHz hardware timer; the host simulator sets the same value so scenarios in core/heating_test.go match spec units
// directly (ticks == microseconds at 1MHz).
var CoreFreqHz uint32 = 1_000_000

var (
	systemTicks uint32
	bootTime    uint64 // Time at boot for uptime calculation
)

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration).
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// GetUptime returns 64-bit uptime in timer ticks.
func GetUptime() uint64 {
	return uint64(GetTime())
}

// MSToTicks converts milliseconds to timer ticks at CoreFreqHz.
func MSToTicks(ms int64) int64 {
	return ms * int64(CoreFreqHz) / 1000
}

// TicksToMS converts timer ticks to milliseconds at CoreFreqHz.
func TicksToMS(ticks int64) int64 {
	return ticks * 1000 / int64(CoreFreqHz)
}

// TimerInit initializes the system timer.
func TimerInit() {
	bootTime = uint64(GetTime())
}

// ProcessTimers processes scheduled timers.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
