// Package ble defines the BLE stack the button peripheral talks to and a
// tinygo-org/bluetooth implementation of it. The peripheral code only ever
// sees the Stack interface, so tests substitute an in-memory fake.
package ble

import (
	"errors"
	"fmt"
	"time"
)

// Button service identifiers and advertising defaults.
const (
	ButtonServiceUUID      uint16 = 0xA000
	ButtonStateCharUUID    uint16 = 0xA001
	DefaultDeviceName             = "LaunchMissileButton"
	DefaultAdvertisingRate        = 1000 * time.Millisecond
)

// DefaultInstance is the only stack instance the peripheral accepts.
const DefaultInstance = 0

var (
	// ErrNotDefaultInstance reports an init completion from a stack other
	// than the default instance.
	ErrNotDefaultInstance = errors.New("ble: stack is not the default instance")
	// ErrUnsupported is reported by stacks that cannot act as a peripheral
	// on the current platform.
	ErrUnsupported = errors.New("ble: peripheral role not supported on this platform")
	// ErrUnknownHandle is returned by Notify for a handle that was never registered.
	ErrUnknownHandle = errors.New("ble: unknown attribute handle")
)

// Handle identifies a registered attribute.
type Handle int

// InitResult is delivered to the Init completion callback.
type InitResult struct {
	Instance int
	Err      error
}

// StackInitError is a fatal stack initialization failure. There is no
// retry; the device needs a restart.
type StackInitError struct {
	Instance int
	Err      error
}

func (e *StackInitError) Error() string {
	return fmt.Sprintf("ble: stack init failed (instance %d): %v", e.Instance, e.Err)
}

func (e *StackInitError) Unwrap() error { return e.Err }

// AttributeConfig describes a single readable, notifiable characteristic
// and the service it belongs to.
type AttributeConfig struct {
	ServiceUUID        uint16
	CharacteristicUUID uint16
	Initial            []byte
}

// AdvertisingConfig configures the advertising payload and interval.
type AdvertisingConfig struct {
	LocalName    string
	ServiceUUIDs []uint16
	Interval     time.Duration
	Connectable  bool
}

// Stack abstracts the BLE stack for testing.
//
// Callbacks registered with the stack may fire on library goroutines. The
// stack must not invoke OnConnect/OnDisconnect handlers from those
// goroutines; it queues them, signals OnEventsPending, and runs them from
// ProcessEvents, which the caller schedules on its own goroutine.
type Stack interface {
	// Init starts the stack asynchronously and calls onComplete once.
	Init(onComplete func(InitResult))
	// OnEventsPending registers the signal raised when ProcessEvents has work.
	OnEventsPending(fn func())
	// ProcessEvents runs queued stack work on the caller's goroutine.
	ProcessEvents()
	// RegisterAttribute adds a characteristic to the attribute table.
	RegisterAttribute(cfg AttributeConfig) (Handle, error)
	// Notify writes value to the attribute and notifies subscribed centrals.
	Notify(h Handle, value []byte) error
	// StartAdvertising configures and (re)starts advertising.
	StartAdvertising(cfg AdvertisingConfig) error
	// OnConnect registers the central-connected handler.
	OnConnect(fn func())
	// OnDisconnect registers the central-disconnected handler.
	OnDisconnect(fn func())
	// Address returns the local device address.
	Address() (string, error)
}
