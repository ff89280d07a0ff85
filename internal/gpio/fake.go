package gpio

import "time"

// FakeOutputs is a test double that records writes to the pin set.
type FakeOutputs struct {
	// Levels holds the current level of each pin.
	Levels []bool

	// Writes records every Assert/Deassert call in order.
	Writes []Write

	// Now, if set, timestamps each write.
	Now func() time.Duration

	// AssertError, if set, will be returned by Assert.
	AssertError error

	// DeassertError, if set, will be returned by Deassert.
	DeassertError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single set-wide write.
type Write struct {
	At time.Duration
	On bool
}

// NewFakeOutputs creates a FakeOutputs with n pins, all low.
func NewFakeOutputs(n int) *FakeOutputs {
	return &FakeOutputs{Levels: make([]bool, n)}
}

// Assert drives every pin high.
func (f *FakeOutputs) Assert() error {
	if f.AssertError != nil {
		return f.AssertError
	}
	f.set(true)
	return nil
}

// Deassert drives every pin low.
func (f *FakeOutputs) Deassert() error {
	if f.DeassertError != nil {
		return f.DeassertError
	}
	f.set(false)
	return nil
}

func (f *FakeOutputs) set(on bool) {
	for i := range f.Levels {
		f.Levels[i] = on
	}
	w := Write{On: on}
	if f.Now != nil {
		w.At = f.Now()
	}
	f.Writes = append(f.Writes, w)
}

// State returns whether the pins are high, and whether they all agree.
func (f *FakeOutputs) State() (on bool, uniform bool) {
	if len(f.Levels) == 0 {
		return false, true
	}
	on = f.Levels[0]
	for _, l := range f.Levels[1:] {
		if l != on {
			return on, false
		}
	}
	return on, true
}

// Asserts returns the number of Assert writes recorded.
func (f *FakeOutputs) Asserts() int {
	n := 0
	for _, w := range f.Writes {
		if w.On {
			n++
		}
	}
	return n
}

// Close drives the pins low and marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	for i := range f.Levels {
		f.Levels[i] = false
	}
	f.Closed = true
	return nil
}

// Reset clears recorded writes and errors.
func (f *FakeOutputs) Reset() {
	f.Writes = nil
	f.AssertError = nil
	f.DeassertError = nil
	f.Closed = false
}

// FakeZeroCross is a test double for the zero-cross input.
type FakeZeroCross struct {
	// Handler receives edges.
	Handler func()

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeZeroCross creates a FakeZeroCross delivering to handler.
func NewFakeZeroCross(handler func()) *FakeZeroCross {
	return &FakeZeroCross{Handler: handler}
}

// Edge delivers one rising edge, unless closed.
func (f *FakeZeroCross) Edge() {
	if f.Closed || f.Handler == nil {
		return
	}
	f.Handler()
}

// Close stops edge delivery.
func (f *FakeZeroCross) Close() error {
	f.Closed = true
	return nil
}
