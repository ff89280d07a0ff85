//go:build !linux

package timer

import (
	"errors"
	"time"
)

// RealTimer is not available on non-Linux platforms.
type RealTimer struct{}

// NewRealTimer returns an error on non-Linux platforms.
func NewRealTimer(tick time.Duration) (*RealTimer, error) {
	return nil, errors.New("timer: not supported on this platform (requires Linux)")
}

// Arm is not implemented on non-Linux platforms.
func (t *RealTimer) Arm(ticks uint32) error {
	return errors.New("timer: not supported")
}

// Pending is not implemented on non-Linux platforms.
func (t *RealTimer) Pending() bool {
	return false
}

// Run is not implemented on non-Linux platforms.
func (t *RealTimer) Run(handler func()) {}

// Close is not implemented on non-Linux platforms.
func (t *RealTimer) Close() error {
	return nil
}
