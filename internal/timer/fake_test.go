package timer

import (
	"errors"
	"testing"
	"time"
)

func TestFakeTimerFiresAtDeadline(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	var firedAt []time.Duration
	f.Handler = func() { firedAt = append(firedAt, f.Now()) }

	if err := f.Arm(2500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Pending() {
		t.Fatal("expected pending after Arm")
	}

	f.AdvanceTo(2 * time.Millisecond)
	if len(firedAt) != 0 {
		t.Fatalf("fired early at %v", firedAt)
	}

	f.AdvanceTo(10 * time.Millisecond)
	if len(firedAt) != 1 {
		t.Fatalf("expected 1 expiry, got %d", len(firedAt))
	}
	if firedAt[0] != 2500*time.Microsecond {
		t.Errorf("fired at %v, want 2.5ms", firedAt[0])
	}
	if f.Now() != 10*time.Millisecond {
		t.Errorf("clock: got %v, want 10ms", f.Now())
	}
	if f.Pending() {
		t.Error("should not be pending after expiry")
	}
}

func TestFakeTimerNeverReloads(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	n := 0
	f.Handler = func() { n++ }

	f.Arm(100)
	f.Advance(time.Second)
	f.Advance(time.Second)

	if n != 1 {
		t.Errorf("expected exactly 1 expiry, got %d", n)
	}
}

func TestFakeTimerRearmReplaces(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	n := 0
	f.Handler = func() { n++ }

	f.Arm(1000)
	f.Advance(500 * time.Microsecond)
	f.Arm(1000)
	f.Advance(600 * time.Microsecond)
	if n != 0 {
		t.Fatalf("first deadline should have been replaced, got %d expiries", n)
	}
	f.Advance(400 * time.Microsecond)
	if n != 1 {
		t.Errorf("expected 1 expiry, got %d", n)
	}
	if got := f.Fired[0]; got != 1500*time.Microsecond {
		t.Errorf("fired at %v, want 1.5ms", got)
	}
}

func TestFakeTimerLatency(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	f.Latency = 50 * time.Microsecond

	f.Arm(100)
	d, ok := f.Deadline()
	if !ok || d != 150*time.Microsecond {
		t.Errorf("deadline: got %v (%v), want 150us", d, ok)
	}
}

func TestFakeTimerZeroTicks(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	if err := f.Arm(0); !errors.Is(err, ErrZeroTicks) {
		t.Errorf("expected ErrZeroTicks, got %v", err)
	}
	if f.Pending() {
		t.Error("should not be pending after failed Arm")
	}
}

func TestFakeTimerArmError(t *testing.T) {
	f := NewFakeTimer(time.Microsecond)
	f.ArmError = errors.New("simulated error")

	if err := f.Arm(10); err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.Arms) != 0 {
		t.Errorf("expected no recorded arms, got %d", len(f.Arms))
	}
}
