package phase

import (
	"fmt"
	"sync/atomic"
)

// DutyStore is the duty cycle cell shared between the command path (writer)
// and the zero-cross handler (reader).
//
// The value is a single 32-bit atomic, so a reader sees either the value
// before a write or the value after it, never a mix. A write that lands while
// a window is already armed takes effect on the next zero-cross.
type DutyStore struct {
	v atomic.Uint32
}

// ErrDutyRange is returned by Set for values above MaxDuty.
var ErrDutyRange = fmt.Errorf("duty out of range [0,%d]", MaxDuty)

// Load returns the current duty.
func (s *DutyStore) Load() uint32 {
	return s.v.Load()
}

// Set stores a new duty. Values above MaxDuty are rejected and the previous
// value is kept.
func (s *DutyStore) Set(duty uint32) error {
	if duty > MaxDuty {
		return ErrDutyRange
	}
	s.v.Store(duty)
	return nil
}
