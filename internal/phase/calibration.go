// Package phase implements the phase-cut timing engine: the zero-cross
// handler, the countdown expiry handler and the duty cycle cell shared with
// the command path.
// This package has NO hardware dependencies. Outputs and the countdown timer
// are injected through the Outputs and Timer interfaces.
package phase

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxDuty is the duty value that keeps the outputs asserted for a full
// half-cycle. Duty is expressed in thousandths of the half-cycle.
const MaxDuty = 1000

// Calibration ties duty units to timer ticks.
type Calibration struct {
	// HalfCycle is the nominal time between zero-cross edges
	// (10ms for 50Hz mains, two edges per cycle).
	HalfCycle time.Duration

	// TickPeriod is the resolution of the countdown timer.
	TickPeriod time.Duration
}

// DefaultCalibration is 50Hz mains against a 1us timer tick.
var DefaultCalibration = Calibration{
	HalfCycle:  10 * time.Millisecond,
	TickPeriod: time.Microsecond,
}

var (
	ErrBadHalfCycle  = errors.New("half-cycle must be positive")
	ErrBadTickPeriod = errors.New("tick period must be positive")
)

// UnitDuration is the on-time represented by one duty unit.
func (c Calibration) UnitDuration() time.Duration {
	return c.HalfCycle / MaxDuty
}

// TicksPerUnit is the number of timer ticks per duty unit.
func (c Calibration) TicksPerUnit() uint32 {
	return uint32(c.UnitDuration() / c.TickPeriod)
}

// Ticks returns the countdown for the given duty value.
func (c Calibration) Ticks(duty uint32) uint32 {
	return duty * c.TicksPerUnit()
}

// Delay returns the on-time for the given duty value.
func (c Calibration) Delay(duty uint32) time.Duration {
	return time.Duration(c.Ticks(duty)) * c.TickPeriod
}

// Validate checks that MaxDuty maps exactly onto HalfCycle in whole ticks and
// that the largest countdown fits the timer's 32-bit tick count.
// An invalid calibration is a startup error; the engine must not be started.
func (c Calibration) Validate() error {
	if c.HalfCycle <= 0 {
		return ErrBadHalfCycle
	}
	if c.TickPeriod <= 0 {
		return ErrBadTickPeriod
	}
	if c.HalfCycle%MaxDuty != 0 {
		return fmt.Errorf("half-cycle %v is not a whole multiple of %d duty units", c.HalfCycle, MaxDuty)
	}
	unit := c.UnitDuration()
	if unit < c.TickPeriod || unit%c.TickPeriod != 0 {
		return fmt.Errorf("duty unit %v is not a whole multiple of tick period %v", unit, c.TickPeriod)
	}
	if int64(unit/c.TickPeriod)*MaxDuty > math.MaxUint32 {
		return fmt.Errorf("half-cycle %v overflows the timer at tick period %v", c.HalfCycle, c.TickPeriod)
	}
	return nil
}
