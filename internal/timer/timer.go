// Package timer provides the single-shot countdown that ends each output
// window.
// The real implementation uses a Linux timerfd on CLOCK_MONOTONIC.
// The fake implementation runs on a simulated clock for deterministic tests.
package timer

import "errors"

// ErrZeroTicks is returned when arming with a zero countdown.
var ErrZeroTicks = errors.New("timer: zero ticks")
