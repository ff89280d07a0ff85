// Package mqtt provides the broker connection state machine and telemetry
// publishing, with transport abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the telemetry payload version.
const SchemaVersion = 1

// LWT payloads.
const (
	PayloadOnline  = "Online"
	PayloadOffline = "Offline"
)

// Topics are the MQTT topics for one device.
type Topics struct {
	Command string // cmnd/<device>/#
	Init    string // tele/<device>/init
	Power   string // tele/<device>/power
	LWT     string // tele/<device>/LWT
}

// TopicsFor returns the topics for the named device.
func TopicsFor(device string) Topics {
	return Topics{
		Command: "cmnd/" + device + "/#",
		Init:    "tele/" + device + "/init",
		Power:   "tele/" + device + "/power",
		LWT:     "tele/" + device + "/LWT",
	}
}

// Transport is a connection to the broker.
type Transport interface {
	// Connect starts a connection attempt and returns immediately.
	Connect() Token

	// IsConnected reports whether the connection is up.
	IsConnected() bool

	// Subscribe registers handler for messages matching topic.
	Subscribe(topic string, handler func(topic string, payload []byte)) error

	// Publish sends payload to topic at QoS 0.
	Publish(topic string, retained bool, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// Token tracks an asynchronous connection attempt.
type Token interface {
	Done() <-chan struct{}
	Error() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Source supplies the live values reported in telemetry.
type Source interface {
	Loops() uint32
	Duty() uint32
}

// Record is the telemetry payload. Loops is omitted from init records.
type Record struct {
	Version int     `json:"version"`
	Time    string  `json:"time"`
	Loops   *uint32 `json:"loops,omitempty"`
	Duty    uint32  `json:"duty"`
}

// FormatInit creates the payload sent once per connection.
func FormatInit(t time.Time, duty uint32) ([]byte, error) {
	return json.Marshal(Record{
		Version: SchemaVersion,
		Time:    t.Format(time.RFC3339),
		Duty:    duty,
	})
}

// FormatPower creates the periodic telemetry payload.
func FormatPower(t time.Time, loops, duty uint32) ([]byte, error) {
	return json.Marshal(Record{
		Version: SchemaVersion,
		Time:    t.Format(time.RFC3339),
		Loops:   &loops,
		Duty:    duty,
	})
}

// syncedSince is the earliest time treated as coming from a synchronised
// clock. Anything earlier is a board that booted without a time source.
var syncedSince = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// ClockValid reports whether t looks like it came from a synchronised clock.
func ClockValid(t time.Time) bool {
	return !t.Before(syncedSince)
}
