// Package state owns the button state and mirrors it into a BLE
// characteristic.
package state

import (
	"fmt"
	"log/slog"

	"github.com/chaz8081/ble-button/internal/ble"
)

// Sink receives button state updates.
type Sink interface {
	Update(pressed bool)
}

// Notifier is the part of ble.Stack the publisher needs.
type Notifier interface {
	RegisterAttribute(cfg ble.AttributeConfig) (ble.Handle, error)
	Notify(h ble.Handle, value []byte) error
}

// Options selects the service and characteristic the state is published on.
type Options struct {
	ServiceUUID        uint16
	CharacteristicUUID uint16
}

// DefaultOptions returns the button service identifiers.
func DefaultOptions() Options {
	return Options{
		ServiceUUID:        ble.ButtonServiceUUID,
		CharacteristicUUID: ble.ButtonStateCharUUID,
	}
}

// Publisher holds the last known button state. It is not safe for
// concurrent use: every call must come from the dispatcher goroutine.
type Publisher struct {
	notifier Notifier
	handle   ble.Handle
	pressed  bool
	notified uint64
}

// Compile-time check that Publisher implements Sink.
var _ Sink = (*Publisher)(nil)

// NewPublisher registers the state characteristic with its initial value.
func NewPublisher(n Notifier, initial bool, opts Options) (*Publisher, error) {
	if opts.ServiceUUID == 0 {
		opts.ServiceUUID = ble.ButtonServiceUUID
	}
	if opts.CharacteristicUUID == 0 {
		opts.CharacteristicUUID = ble.ButtonStateCharUUID
	}

	h, err := n.RegisterAttribute(ble.AttributeConfig{
		ServiceUUID:        opts.ServiceUUID,
		CharacteristicUUID: opts.CharacteristicUUID,
		Initial:            Encode(initial),
	})
	if err != nil {
		return nil, fmt.Errorf("state: register characteristic: %w", err)
	}
	return &Publisher{notifier: n, handle: h, pressed: initial}, nil
}

// Update stores pressed and notifies subscribers. Equal consecutive values
// are notified again. Delivery errors are logged and dropped.
func (p *Publisher) Update(pressed bool) {
	p.pressed = pressed
	p.notified++
	if err := p.notifier.Notify(p.handle, Encode(pressed)); err != nil {
		slog.Debug("[STATE] notify failed", "pressed", pressed, "error", err)
	}
}

// Value returns the current state.
func (p *Publisher) Value() bool { return p.pressed }

// Handle returns the registered characteristic handle.
func (p *Publisher) Handle() ble.Handle { return p.handle }

// Notifications returns how many times Update has issued a notify.
func (p *Publisher) Notifications() uint64 { return p.notified }

// Encode returns the one-byte characteristic value for pressed.
func Encode(pressed bool) []byte {
	if pressed {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// Decode parses a characteristic value. Any non-zero byte means pressed.
func Decode(value []byte) (bool, error) {
	if len(value) != 1 {
		return false, fmt.Errorf("state: value must be 1 byte, got %d", len(value))
	}
	return value[0] != 0, nil
}
