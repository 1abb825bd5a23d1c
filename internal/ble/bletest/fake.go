// Package bletest provides an in-memory ble.Stack for tests.
package bletest

import (
	"bytes"
	"errors"
	"sync"

	"github.com/chaz8081/ble-button/internal/ble"
)

// Notification is one recorded Notify call.
type Notification struct {
	Handle ble.Handle
	Value  []byte
}

// FakeStack records every call made through ble.Stack. Init completes only
// when the test calls CompleteInit, so tests control the ordering.
type FakeStack struct {
	mu sync.Mutex

	onComplete   func(ble.InitResult)
	pending      func()
	onConnect    func()
	onDisconnect func()
	queued       []func()

	Attributes    []ble.AttributeConfig
	Notifications []Notification
	Advertising   []ble.AdvertisingConfig
	Processed     int

	// Set before the call to make it fail.
	RegisterErr  error
	NotifyErr    error
	AdvertiseErr error
	Addr         string
}

// New returns an empty FakeStack.
func New() *FakeStack {
	return &FakeStack{Addr: "AA:BB:CC:DD:EE:FF"}
}

var _ ble.Stack = (*FakeStack)(nil)

func (s *FakeStack) Init(onComplete func(ble.InitResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = onComplete
}

// Initialized reports whether Init has been called.
func (s *FakeStack) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onComplete != nil
}

// CompleteInit delivers res to the Init callback, as the stack's own
// goroutine would.
func (s *FakeStack) CompleteInit(res ble.InitResult) {
	s.mu.Lock()
	cb := s.onComplete
	s.mu.Unlock()
	if cb == nil {
		panic("bletest: CompleteInit before Init")
	}
	cb(res)
}

func (s *FakeStack) OnEventsPending(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = fn
}

func (s *FakeStack) ProcessEvents() {
	s.mu.Lock()
	batch := s.queued
	s.queued = nil
	s.Processed++
	s.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

func (s *FakeStack) OnConnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

func (s *FakeStack) OnDisconnect(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// SimulateConnect queues a connection event and raises the pending signal.
func (s *FakeStack) SimulateConnect() { s.queue(true) }

// SimulateDisconnect queues a disconnection event and raises the pending signal.
func (s *FakeStack) SimulateDisconnect() { s.queue(false) }

func (s *FakeStack) queue(connected bool) {
	s.mu.Lock()
	s.queued = append(s.queued, func() {
		s.mu.Lock()
		fn := s.onDisconnect
		if connected {
			fn = s.onConnect
		}
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	signal := s.pending
	s.mu.Unlock()
	if signal != nil {
		signal()
	}
}

func (s *FakeStack) RegisterAttribute(cfg ble.AttributeConfig) (ble.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RegisterErr != nil {
		return 0, s.RegisterErr
	}
	cfg.Initial = bytes.Clone(cfg.Initial)
	s.Attributes = append(s.Attributes, cfg)
	return ble.Handle(len(s.Attributes) - 1), nil
}

func (s *FakeStack) Notify(h ble.Handle, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h) < 0 || int(h) >= len(s.Attributes) {
		return ble.ErrUnknownHandle
	}
	s.Notifications = append(s.Notifications, Notification{Handle: h, Value: bytes.Clone(value)})
	return s.NotifyErr
}

func (s *FakeStack) StartAdvertising(cfg ble.AdvertisingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AdvertiseErr != nil {
		return s.AdvertiseErr
	}
	s.Advertising = append(s.Advertising, cfg)
	return nil
}

func (s *FakeStack) Address() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Addr == "" {
		return "", errors.New("bletest: no address")
	}
	return s.Addr, nil
}

// NotificationCount returns the number of recorded Notify calls.
func (s *FakeStack) NotificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Notifications)
}

// AdvertisingCount returns the number of successful StartAdvertising calls.
func (s *FakeStack) AdvertisingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Advertising)
}

// AttributeCount returns the number of registered attributes.
func (s *FakeStack) AttributeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Attributes)
}
