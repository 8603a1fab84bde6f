package agent

// Timebase is a monotonic microsecond counter advanced by the host tick.
// It never blocks and never reads a wall clock; time only moves when the
// host calls Step. Elapsed arithmetic is modular so counter wraparound is
// transparent to callers.
type Timebase struct {
	timeUs uint64
}

// Step advances the counter by dtUs microseconds.
func (t *Timebase) Step(dtUs uint32) {
	t.timeUs += uint64(dtUs)
}

// Now returns the current timestamp in microseconds.
func (t *Timebase) Now() uint64 {
	return t.timeUs
}

// Elapsed returns the number of microseconds since timestamp, computed
// under modular arithmetic.
func (t *Timebase) Elapsed(timestamp uint64) uint64 {
	return t.timeUs - timestamp
}

// IsElapsed reports whether at least timeoutUs microseconds have passed
// since timestamp.
func (t *Timebase) IsElapsed(timestamp, timeoutUs uint64) bool {
	return t.Elapsed(timestamp) >= timeoutUs
}

// Reset sets the counter back to a known value.
func (t *Timebase) Reset(value uint64) {
	t.timeUs = value
}
