package mqtt

import (
	"strings"
	"sync"
)

// FakeTransport records subscriptions and publishes for test assertions.
// It is safe for use from the test goroutine and the goroutine under test.
type FakeTransport struct {
	mu sync.Mutex

	// ConnectErrors scripts the result of successive Connect calls.
	// Once exhausted, Connect succeeds.
	ConnectErrors []error

	// Hold, if set, makes Connect return a token that stays pending until
	// Release is called.
	Hold bool

	// Connects counts Connect calls.
	Connects int

	// Connected controls the return value of IsConnected.
	Connected bool

	// Subscriptions contains every subscribed topic filter.
	Subscriptions []string

	// Published contains every published message.
	Published []Published

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	handlers map[string]func(topic string, payload []byte)
	held     *fakeToken
}

// Published is a recorded publish.
type Published struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{handlers: make(map[string]func(string, []byte))}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// Connect consumes the next scripted result.
func (f *FakeTransport) Connect() Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.Connects < len(f.ConnectErrors) {
		err = f.ConnectErrors[f.Connects]
	}
	f.Connects++

	tok := &fakeToken{done: make(chan struct{}), err: err}
	if f.Hold {
		f.held = tok
		return tok
	}
	f.Connected = err == nil
	close(tok.done)
	return tok
}

// Release completes a held connection attempt with err.
func (f *FakeTransport) Release(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		return
	}
	f.held.err = err
	f.Connected = err == nil
	close(f.held.done)
	f.held = nil
}

// IsConnected reports whether the fake transport is "connected".
func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Drop simulates the broker connection going away.
func (f *FakeTransport) Drop() {
	f.mu.Lock()
	f.Connected = false
	f.mu.Unlock()
}

// Subscribe records the topic filter and handler.
func (f *FakeTransport) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions = append(f.Subscriptions, topic)
	f.handlers[topic] = handler
	return nil
}

// Deliver passes an inbound message to every handler whose filter matches.
// It reports whether any handler received it.
func (f *FakeTransport) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	var matched []func(string, []byte)
	for filter, h := range f.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	f.mu.Unlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return len(matched) > 0
}

// Publish records the message.
func (f *FakeTransport) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Published{Topic: topic, Retained: retained, Payload: payload})
	return nil
}

// PublishedTo returns the messages published to topic.
func (f *FakeTransport) PublishedTo(topic string) []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Published
	for _, p := range f.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.Connected = false
	return nil
}

// topicMatches implements MQTT filter matching for + and trailing #.
func topicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
