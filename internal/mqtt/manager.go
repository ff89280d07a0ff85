package mqtt

import (
	"log"
	"time"
)

// State is the broker connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	}
	return "UNKNOWN"
}

// RetryInterval is the fixed wait after a failed connection attempt.
const RetryInterval = 5 * time.Second

// Manager owns the broker connection state. It never blocks: Step is called
// from the main loop on every tick and advances the state machine as far as
// the transport allows, so telemetry and command intake keep running while a
// retry is pending.
type Manager struct {
	transport Transport
	topics    Topics
	source    Source
	onMessage func(topic string, payload []byte)
	retry     time.Duration

	state    State
	token    Token
	retryAt  time.Time
	backoffs int
	connects int
}

// NewManager creates a Manager. onMessage receives every message on the
// command topic; it is called on the transport's goroutine.
func NewManager(transport Transport, topics Topics, source Source, onMessage func(topic string, payload []byte)) *Manager {
	return &Manager{
		transport: transport,
		topics:    topics,
		source:    source,
		onMessage: onMessage,
		retry:     RetryInterval,
	}
}

// Step advances the state machine.
func (m *Manager) Step(now time.Time) {
	if m.state == Connected && !m.transport.IsConnected() {
		log.Printf("mqtt: connection lost")
		m.state = Disconnected
		m.retryAt = now
	}

	if m.state == Disconnected {
		if now.Before(m.retryAt) {
			return
		}
		m.state = Connecting
		m.token = m.transport.Connect()
	}

	if m.state == Connecting {
		select {
		case <-m.token.Done():
		default:
			return
		}
		if err := m.token.Error(); err != nil {
			log.Printf("mqtt: connect failed: %v, retrying in %v", err, m.retry)
			m.state = Disconnected
			m.retryAt = now.Add(m.retry)
			m.backoffs++
			return
		}
		m.state = Connected
		m.connects++
		m.onConnect(now)
	}
}

// onConnect runs the one-time actions of a new connection.
func (m *Manager) onConnect(now time.Time) {
	log.Printf("mqtt: connected")

	if err := m.transport.Subscribe(m.topics.Command, m.onMessage); err != nil {
		log.Printf("mqtt: subscribe %s: %v", m.topics.Command, err)
	}

	if !ClockValid(now) {
		log.Printf("mqtt: warning: clock not synchronised (%s), timestamps unreliable", now.Format(time.RFC3339))
	}
	payload, err := FormatInit(now, m.source.Duty())
	if err != nil {
		log.Printf("mqtt: format init: %v", err)
	} else if err := m.transport.Publish(m.topics.Init, false, payload); err != nil {
		log.Printf("mqtt: publish init: %v", err)
	} else {
		log.Printf("mqtt: %s %s", m.topics.Init, payload)
	}

	if err := m.transport.Publish(m.topics.LWT, true, []byte(PayloadOnline)); err != nil {
		log.Printf("mqtt: publish LWT: %v", err)
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.state
}

// IsConnected reports whether the manager is in the Connected state.
func (m *Manager) IsConnected() bool {
	return m.state == Connected
}

// Backoffs returns the number of retry waits entered since startup.
func (m *Manager) Backoffs() int {
	return m.backoffs
}

// Connects returns the number of successful connections since startup.
func (m *Manager) Connects() int {
	return m.connects
}

// Shutdown announces a clean exit on the LWT topic. The broker's will only
// covers connections that drop without one.
func (m *Manager) Shutdown() {
	if m.state != Connected {
		return
	}
	if err := m.transport.Publish(m.topics.LWT, true, []byte(PayloadOffline)); err != nil {
		log.Printf("mqtt: publish LWT: %v", err)
	}
}
