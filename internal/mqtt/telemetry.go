package mqtt

import (
	"log"
	"time"
)

// TelemetryInterval is the cadence of power records.
const TelemetryInterval = time.Second

// Telemetry publishes a power record on every tick while connected.
// Records are never queued: a tick while disconnected sends nothing.
type Telemetry struct {
	transport Transport
	conn      ConnectionStatus
	topic     string
	source    Source
	sent      int
	warned    bool
}

// NewTelemetry creates a Telemetry publisher.
func NewTelemetry(transport Transport, conn ConnectionStatus, topics Topics, source Source) *Telemetry {
	return &Telemetry{
		transport: transport,
		conn:      conn,
		topic:     topics.Power,
		source:    source,
	}
}

// Tick publishes one record if connected. Publish errors are logged and the
// record is dropped.
func (t *Telemetry) Tick(now time.Time) {
	if !t.conn.IsConnected() {
		return
	}

	if !ClockValid(now) {
		if !t.warned {
			log.Printf("mqtt: warning: clock not synchronised, telemetry timestamps unreliable")
			t.warned = true
		}
	} else {
		t.warned = false
	}

	payload, err := FormatPower(now, t.source.Loops(), t.source.Duty())
	if err != nil {
		log.Printf("mqtt: format telemetry: %v", err)
		return
	}
	if err := t.transport.Publish(t.topic, false, payload); err != nil {
		log.Printf("mqtt: publish telemetry: %v", err)
		return
	}
	t.sent++
}

// Sent returns the number of records published.
func (t *Telemetry) Sent() int {
	return t.sent
}
