// Package command validates inbound duty cycle commands and applies them to
// the duty store. Rejected commands are logged and dropped; no reply is sent.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// PowerCommand is the command sub-topic that carries a duty value.
const PowerCommand = "power"

// Store receives validated duty values.
type Store interface {
	Set(duty uint32) error
}

// Message is an inbound command as delivered by the broker.
type Message struct {
	Topic   string
	Payload []byte
}

var (
	ErrTopic      = errors.New("not a command topic for this device")
	ErrPayload    = errors.New("malformed payload")
	ErrMissing    = errors.New("duty missing")
	ErrNotNumeric = errors.New("duty not numeric")
	ErrNotInteger = errors.New("duty not an integer")
	ErrRange      = errors.New("duty out of range")
	ErrUnknown    = errors.New("unknown command")
)

// Handler applies duty commands for one device.
type Handler struct {
	store   Store
	device  string
	maxDuty int64
}

// NewHandler creates a Handler for commands addressed to device, writing to
// store. maxDuty is the inclusive upper bound accepted.
func NewHandler(store Store, device string, maxDuty uint32) *Handler {
	return &Handler{store: store, device: device, maxDuty: int64(maxDuty)}
}

// Handle validates msg and applies it. Every rejection is logged and leaves
// the stored duty unchanged; the error is returned for callers that count
// them.
func (h *Handler) Handle(msg Message) error {
	duty, err := h.parse(msg)
	if err != nil {
		log.Printf("command: rejected %s %q: %v", msg.Topic, msg.Payload, err)
		return err
	}
	if err := h.store.Set(duty); err != nil {
		log.Printf("command: store duty %d: %v", duty, err)
		return fmt.Errorf("store duty: %w", err)
	}
	log.Printf("command: duty set to %d", duty)
	return nil
}

// parse extracts the duty value from a power command.
func (h *Handler) parse(msg Message) (uint32, error) {
	// cmnd/<device>/<command>[/...]
	parts := strings.SplitN(msg.Topic, "/", 4)
	if len(parts) < 3 || parts[0] != "cmnd" || parts[1] != h.device {
		return 0, ErrTopic
	}
	if parts[2] != PowerCommand {
		return 0, fmt.Errorf("%w %q", ErrUnknown, parts[2])
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(msg.Payload))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if fields == nil {
		return 0, ErrPayload
	}
	if _, err := dec.Token(); err != io.EOF {
		return 0, fmt.Errorf("%w: trailing data", ErrPayload)
	}

	raw, ok := fields["duty"]
	if !ok || raw == nil {
		return 0, ErrMissing
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, raw)
	}
	v, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotInteger, num)
	}
	if v < 0 || v > h.maxDuty {
		return 0, fmt.Errorf("%w: %d", ErrRange, v)
	}
	return uint32(v), nil
}
