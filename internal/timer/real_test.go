//go:build linux

package timer

import (
	"errors"
	"testing"
	"time"
)

func newRealTimer(t *testing.T) (*RealTimer, <-chan time.Time) {
	t.Helper()
	tmr, err := NewRealTimer(time.Microsecond)
	if err != nil {
		t.Fatalf("NewRealTimer: %v", err)
	}
	t.Cleanup(func() { tmr.Close() })

	fired := make(chan time.Time, 8)
	tmr.Run(func() { fired <- time.Now() })
	return tmr, fired
}

func waitFire(t *testing.T, fired <-chan time.Time) time.Time {
	t.Helper()
	select {
	case at := <-fired:
		return at
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
		return time.Time{}
	}
}

func expectNoFire(t *testing.T, fired <-chan time.Time, wait time.Duration) {
	t.Helper()
	select {
	case <-fired:
		t.Fatal("unexpected expiry")
	case <-time.After(wait):
	}
}

func TestRealTimerFiresOnce(t *testing.T) {
	tmr, fired := newRealTimer(t)

	start := time.Now()
	if err := tmr.Arm(2500); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if !tmr.Pending() {
		t.Error("expected pending straight after Arm")
	}

	at := waitFire(t, fired)
	if elapsed := at.Sub(start); elapsed < 2500*time.Microsecond {
		t.Errorf("fired after %v, want at least 2.5ms", elapsed)
	}
	if tmr.Pending() {
		t.Error("expected not pending after expiry")
	}

	// Single-shot: nothing more without another Arm.
	expectNoFire(t, fired, 20*time.Millisecond)
}

func TestRealTimerRearmReplaces(t *testing.T) {
	tmr, fired := newRealTimer(t)

	if err := tmr.Arm(50000); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	start := time.Now()
	if err := tmr.Arm(1000); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	at := waitFire(t, fired)
	if elapsed := at.Sub(start); elapsed >= 50*time.Millisecond {
		t.Errorf("fired after %v, the second Arm should have replaced the first", elapsed)
	}
	expectNoFire(t, fired, 80*time.Millisecond)
}

func TestRealTimerCloseStopsReader(t *testing.T) {
	tmr, err := NewRealTimer(time.Microsecond)
	if err != nil {
		t.Fatalf("NewRealTimer: %v", err)
	}
	fired := make(chan time.Time, 8)
	tmr.Run(func() { fired <- time.Now() })

	if err := tmr.Arm(100000); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := tmr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-tmr.done:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still running after Close")
	}
	// The wake-up used by Close is not delivered as an expiry.
	expectNoFire(t, fired, 20*time.Millisecond)

	if err := tmr.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRealTimerRejectsZero(t *testing.T) {
	tmr, _ := newRealTimer(t)
	if err := tmr.Arm(0); !errors.Is(err, ErrZeroTicks) {
		t.Errorf("expected ErrZeroTicks, got %v", err)
	}
	if tmr.Pending() {
		t.Error("rejected Arm should leave the timer disarmed")
	}

	if _, err := NewRealTimer(0); err == nil {
		t.Error("expected error for zero tick period")
	}
}
