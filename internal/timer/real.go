//go:build linux

package timer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// RealTimer is a single-shot countdown on a Linux timerfd (CLOCK_MONOTONIC).
type RealTimer struct {
	fd      int
	tick    time.Duration
	closed  atomic.Bool
	started atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewRealTimer creates a disarmed timer counting in units of tick.
func NewRealTimer(tick time.Duration) (*RealTimer, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("timer: invalid tick period %v", tick)
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create timerfd: %w", err)
	}
	return &RealTimer{
		fd:   fd,
		tick: tick,
		done: make(chan struct{}),
	}, nil
}

// Arm schedules one expiry ticks from now, replacing any pending expiry.
// The interval field is left zero so the kernel never reloads the timer.
func (t *RealTimer) Arm(ticks uint32) error {
	if ticks == 0 {
		return ErrZeroTicks
	}
	d := time.Duration(ticks) * t.tick
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(d.Nanoseconds())}
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("arm timerfd: %w", err)
	}
	return nil
}

// Pending reports whether the timer is armed and has not yet expired.
func (t *RealTimer) Pending() bool {
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(t.fd, &cur); err != nil {
		return false
	}
	return cur.Value.Sec != 0 || cur.Value.Nsec != 0
}

// Run starts delivering expiries to handler on a dedicated goroutine.
// It may be called once.
func (t *RealTimer) Run(handler func()) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(t.done)
		buf := make([]byte, 8)
		for {
			_, err := unix.Read(t.fd, buf)
			if t.closed.Load() {
				return
			}
			if err != nil {
				if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
					continue
				}
				log.Printf("timer: read timerfd: %v", err)
				return
			}
			handler()
		}
	}()
}

// Close stops delivery and releases the timerfd.
func (t *RealTimer) Close() error {
	var err error
	t.once.Do(func() {
		t.closed.Store(true)
		if t.started.Load() {
			// Wake the blocked reader so it observes closed.
			spec := unix.ItimerSpec{Value: unix.Timespec{Nsec: 1}}
			if serr := unix.TimerfdSettime(t.fd, 0, &spec, nil); serr == nil {
				select {
				case <-t.done:
				case <-time.After(time.Second):
					log.Printf("timer: reader did not stop")
				}
			}
		}
		if cerr := unix.Close(t.fd); cerr != nil {
			err = fmt.Errorf("close timerfd: %w", cerr)
		}
	})
	return err
}
