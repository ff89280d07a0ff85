// Package status provides a thread-safe status tracker for the phasecut
// daemon. It is written by the main loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	Device       string
	Broker       string
	TimeServer   string
	Timezone     string
	ZeroCrossPin int
	OutputPins   []int
	HalfCycleUs  int64
	TickNs       int64
	HTTPAddr     string
}

// Engine is a point-in-time view of the phase controller.
type Engine struct {
	Duty     uint32
	Loops    uint32
	Overruns uint32
	Faults   uint32
}

// MQTT is a point-in-time view of the broker connection.
type MQTT struct {
	State     string
	Connected bool
	Connects  int
	Backoffs  int
	Sent      int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Engine    Engine
	MQTT      MQTT
	Commands  int
	Rejected  int
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// UpdateEngine records the controller's counters.
// Called from runLoop on every tick.
func (t *Tracker) UpdateEngine(e Engine) {
	t.mu.Lock()
	t.snap.Engine = e
	t.mu.Unlock()
}

// UpdateMQTT records the broker connection state.
func (t *Tracker) UpdateMQTT(m MQTT) {
	t.mu.Lock()
	t.snap.MQTT = m
	t.mu.Unlock()
}

// CountCommand records an inbound command and whether it was applied.
func (t *Tracker) CountCommand(applied bool) {
	t.mu.Lock()
	t.snap.Commands++
	if !applied {
		t.snap.Rejected++
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Config.OutputPins = append([]int(nil), s.Config.OutputPins...)
	s.Now = t.now()
	return s
}
