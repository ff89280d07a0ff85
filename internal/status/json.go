package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Device        string       `json:"device"`
	Duty          uint32       `json:"duty"`
	Loops         uint32       `json:"loops"`
	Overruns      uint32       `json:"overruns"`
	Faults        uint32       `json:"faults"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Commands      CommandsJSON `json:"commands"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Connects  int    `json:"connects"`
	Backoffs  int    `json:"backoffs"`
	Sent      int    `json:"telemetry_sent"`
}

// CommandsJSON is the JSON representation of command counts.
type CommandsJSON struct {
	Received int `json:"received"`
	Rejected int `json:"rejected"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ZeroCrossPin int    `json:"zero_cross_pin"`
	OutputPins   []int  `json:"output_pins"`
	HalfCycleUs  int64  `json:"half_cycle_us"`
	TickNs       int64  `json:"tick_ns"`
	TimeServer   string `json:"time_server"`
	Timezone     string `json:"timezone"`
	HTTPAddr     string `json:"http_addr"`
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	state := snap.MQTT.State
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		Device:        snap.Config.Device,
		Duty:          snap.Engine.Duty,
		Loops:         snap.Engine.Loops,
		Overruns:      snap.Engine.Overruns,
		Faults:        snap.Engine.Faults,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			State:     state,
			Connected: snap.MQTT.Connected,
			Broker:    snap.Config.Broker,
			Connects:  snap.MQTT.Connects,
			Backoffs:  snap.MQTT.Backoffs,
			Sent:      snap.MQTT.Sent,
		},
		Commands: CommandsJSON{
			Received: snap.Commands,
			Rejected: snap.Rejected,
		},
		Config: ConfigJSON{
			ZeroCrossPin: snap.Config.ZeroCrossPin,
			OutputPins:   snap.Config.OutputPins,
			HalfCycleUs:  snap.Config.HalfCycleUs,
			TickNs:       snap.Config.TickNs,
			TimeServer:   snap.Config.TimeServer,
			Timezone:     snap.Config.Timezone,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
