// Package gpio provides the output pin set and the zero-cross edge source
// with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Outputs drives a fixed set of output lines that always change together.
type Outputs interface {
	// Assert drives every line high.
	Assert() error

	// Deassert drives every line low.
	Deassert() error

	// Close releases GPIO resources, leaving the lines low.
	Close() error
}

// EdgeSource delivers rising zero-cross edges to a handler until closed.
type EdgeSource interface {
	Close() error
}

// DefaultChip is the GPIO chip the lines are requested from.
const DefaultChip = "gpiochip0"

// Pin definitions (BCM numbering)
const (
	DefaultPinZeroCross = 17
)

// DefaultOutputPins are the TRIAC/SSR gate lines (BCM numbering).
var DefaultOutputPins = []int{27, 22, 23, 24}
