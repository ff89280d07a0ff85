package phase

import (
	"sync"
	"sync/atomic"
)

// Outputs drives the output pin set. All pins change together.
type Outputs interface {
	Assert() error
	Deassert() error
}

// Timer is a single-shot countdown. Arm replaces any pending expiry and the
// timer never reloads by itself. The owner delivers expiries to
// Controller.Expire.
type Timer interface {
	Arm(ticks uint32) error

	// Pending reports whether an armed expiry has not yet elapsed.
	Pending() bool
}

// Controller runs the two handlers of the interrupt domain: ZeroCross on
// every rising edge and Expire when the countdown elapses.
//
// Both handlers take mu for the duration of one pin write and one timer call,
// so they never interleave with each other. Neither allocates or blocks on
// anything else.
type Controller struct {
	cal    Calibration
	duty   *DutyStore
	out    Outputs
	timer  Timer
	ticks  uint32 // ticks per duty unit
	mu     sync.Mutex
	armed  bool // outputs asserted, waiting for expiry
	loops  atomic.Uint32
	over   atomic.Uint32
	faults atomic.Uint32
}

// NewController creates a controller. The calibration must already have been
// validated.
func NewController(cal Calibration, duty *DutyStore, out Outputs, timer Timer) *Controller {
	return &Controller{
		cal:   cal,
		duty:  duty,
		out:   out,
		timer: timer,
		ticks: cal.TicksPerUnit(),
	}
}

// ZeroCross handles a rising zero-cross edge.
func (c *Controller) ZeroCross() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The previous window must never run into this half-cycle.
	if c.armed {
		c.over.Add(1)
		c.complete()
	}

	d := c.duty.Load()
	if d == 0 {
		return
	}

	if err := c.out.Assert(); err != nil {
		c.faults.Add(1)
		return
	}
	if err := c.timer.Arm(d * c.ticks); err != nil {
		c.faults.Add(1)
		if err := c.out.Deassert(); err != nil {
			c.faults.Add(1)
		}
		return
	}
	c.armed = true
}

// Expire handles the countdown elapsing. Deliveries for a window that has
// already been completed, or that arrive after the timer was re-armed, are
// dropped.
func (c *Controller) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed || c.timer.Pending() {
		return
	}
	c.complete()
}

// complete closes the current window. Caller holds mu.
func (c *Controller) complete() {
	if err := c.out.Deassert(); err != nil {
		c.faults.Add(1)
	}
	c.armed = false
	c.loops.Add(1)
}

// Stop de-asserts the outputs and abandons any armed window. It must only be
// called once the edge source has been closed.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	return c.out.Deassert()
}

// Loops returns the number of completed half-cycles. It wraps.
func (c *Controller) Loops() uint32 {
	return c.loops.Load()
}

// Overruns returns how many windows were still armed at the next edge.
func (c *Controller) Overruns() uint32 {
	return c.over.Load()
}

// Faults returns how many pin writes or timer arms failed in a handler.
func (c *Controller) Faults() uint32 {
	return c.faults.Load()
}

// Duty returns the duty value the next zero-cross will use.
func (c *Controller) Duty() uint32 {
	return c.duty.Load()
}

// Calibration returns the controller's calibration.
func (c *Controller) Calibration() Calibration {
	return c.cal
}
