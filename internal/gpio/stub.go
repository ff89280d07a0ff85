//go:build !linux

package gpio

import "errors"

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chip string, pins []int) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Assert is not implemented on non-Linux platforms.
func (o *RealOutputs) Assert() error {
	return errors.New("gpio: not supported")
}

// Deassert is not implemented on non-Linux platforms.
func (o *RealOutputs) Deassert() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutputs) Close() error {
	return nil
}

// RealZeroCross is not available on non-Linux platforms.
type RealZeroCross struct{}

// NewRealZeroCross returns an error on non-Linux platforms.
func NewRealZeroCross(chip string, pin int, handler func()) (*RealZeroCross, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (z *RealZeroCross) Close() error {
	return nil
}
