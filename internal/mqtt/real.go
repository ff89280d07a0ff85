package mqtt

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealTransport is a connection to an actual MQTT broker. Reconnection is
// left to Manager, so paho's own retry logic is disabled.
type RealTransport struct {
	client paho.Client
}

// NewRealTransport creates a transport for broker. The broker publishes
// PayloadOffline to topics.LWT if the connection drops.
func NewRealTransport(broker, device string, topics Topics) *RealTransport {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s%04x", device, rand.Intn(0xffff))).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(10*time.Second).
		SetWill(topics.LWT, PayloadOffline, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	return &RealTransport{client: paho.NewClient(opts)}
}

// Connect starts a connection attempt.
func (r *RealTransport) Connect() Token {
	return r.client.Connect()
}

// IsConnected reports whether the client is connected.
func (r *RealTransport) IsConnected() bool {
	return r.client.IsConnected()
}

// Subscribe registers handler for topic at QoS 0.
func (r *RealTransport) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := r.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Publish sends payload to topic.
func (r *RealTransport) Publish(topic string, retained bool, payload []byte) error {
	// QoS 0 (at-most-once): a stale telemetry record is worthless
	token := r.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (r *RealTransport) Close() error {
	if r.client.IsConnected() {
		r.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}
