package timer

import "time"

// FakeTimer is a countdown on a simulated clock. Time only moves when the
// test calls Advance or AdvanceTo, and an expiry that falls due is delivered
// to Handler at its exact deadline.
type FakeTimer struct {
	// Tick is the duration of one countdown tick.
	Tick time.Duration

	// Latency is added to every deadline, simulating a late timer.
	Latency time.Duration

	// Handler receives expiries.
	Handler func()

	// Arms records every countdown passed to Arm.
	Arms []uint32

	// Fired records the simulated time of every delivered expiry.
	Fired []time.Duration

	// ArmError, if set, will be returned by Arm.
	ArmError error

	// Closed tracks if Close was called.
	Closed bool

	now      time.Duration
	deadline time.Duration
	pending  bool
}

// NewFakeTimer creates a disarmed FakeTimer at simulated time zero.
func NewFakeTimer(tick time.Duration) *FakeTimer {
	return &FakeTimer{Tick: tick}
}

// Now returns the simulated time.
func (f *FakeTimer) Now() time.Duration {
	return f.now
}

// Arm schedules one expiry ticks from now, replacing any pending expiry.
func (f *FakeTimer) Arm(ticks uint32) error {
	if f.ArmError != nil {
		return f.ArmError
	}
	if ticks == 0 {
		return ErrZeroTicks
	}
	f.Arms = append(f.Arms, ticks)
	f.deadline = f.now + time.Duration(ticks)*f.Tick + f.Latency
	f.pending = true
	return nil
}

// Pending reports whether an armed expiry has not yet been delivered.
func (f *FakeTimer) Pending() bool {
	return f.pending
}

// Deadline returns the simulated time of the pending expiry.
func (f *FakeTimer) Deadline() (time.Duration, bool) {
	return f.deadline, f.pending
}

// AdvanceTo moves the clock forward to t. A pending expiry due at or before t
// is delivered first, with the clock set to its deadline.
func (f *FakeTimer) AdvanceTo(t time.Duration) {
	if f.pending && f.deadline <= t {
		f.now = f.deadline
		f.deliver()
	}
	if t > f.now {
		f.now = t
	}
}

// Advance moves the clock forward by d.
func (f *FakeTimer) Advance(d time.Duration) {
	f.AdvanceTo(f.now + d)
}

// Fire delivers an expiry now regardless of the armed state, as a delivery
// that was already in flight when the timer was re-armed would.
func (f *FakeTimer) Fire() {
	f.Fired = append(f.Fired, f.now)
	if f.Handler != nil {
		f.Handler()
	}
}

func (f *FakeTimer) deliver() {
	f.pending = false
	f.Fire()
}

// Close marks the timer as closed.
func (f *FakeTimer) Close() error {
	f.Closed = true
	f.pending = false
	return nil
}
