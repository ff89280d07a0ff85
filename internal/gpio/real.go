//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutputs drives output lines on actual hardware. The lines are held in
// one multi-line request so every write sets all of them in a single ioctl.
type RealOutputs struct {
	lines *gpiocdev.Lines
	high  []int
	low   []int
}

// NewRealOutputs requests pins on chip as outputs, initially low.
func NewRealOutputs(chip string, pins []int) (*RealOutputs, error) {
	if len(pins) == 0 {
		return nil, errors.New("no output pins configured")
	}
	low := make([]int, len(pins))
	high := make([]int, len(pins))
	for i := range high {
		high[i] = 1
	}

	lines, err := gpiocdev.RequestLines(chip, pins, gpiocdev.AsOutput(low...))
	if err != nil {
		return nil, fmt.Errorf("request output pins %v: %w", pins, err)
	}

	return &RealOutputs{lines: lines, high: high, low: low}, nil
}

// Assert drives every line high.
func (o *RealOutputs) Assert() error {
	return o.lines.SetValues(o.high)
}

// Deassert drives every line low.
func (o *RealOutputs) Deassert() error {
	return o.lines.SetValues(o.low)
}

// Close drives the lines low and releases them.
// Lines are reconfigured as inputs with pull-down (matching Pi boot defaults)
// so the gate driver is not left floating high.
func (o *RealOutputs) Close() error {
	var errs []error

	if err := o.lines.SetValues(o.low); err != nil {
		errs = append(errs, fmt.Errorf("deassert outputs: %w", err))
	}
	if err := o.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure outputs: %w", err))
	}
	if err := o.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close outputs: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealZeroCross watches the zero-cross detector input for rising edges.
type RealZeroCross struct {
	line *gpiocdev.Line
}

// NewRealZeroCross requests pin as an input with pull-up and calls handler on
// every rising edge. Edges are delivered on the gpiocdev event goroutine from
// the moment this returns, so it must be the last piece of hardware set up.
func NewRealZeroCross(chip string, pin int, handler func()) (*RealZeroCross, error) {
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }))
	if err != nil {
		return nil, fmt.Errorf("request zero-cross pin %d: %w", pin, err)
	}
	return &RealZeroCross{line: line}, nil
}

// Close stops edge delivery and releases the line.
func (z *RealZeroCross) Close() error {
	if err := z.line.Close(); err != nil {
		return fmt.Errorf("close zero-cross pin: %w", err)
	}
	return nil
}
