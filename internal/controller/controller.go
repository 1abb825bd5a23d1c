// Package controller brings the button peripheral up and runs it.
//
// Startup is strictly ordered: power rails, asynchronous stack init, then,
// on the dispatcher goroutine, identity check, edge binding, characteristic
// registration and advertising. After Start, every state change happens on
// the goroutine running Run.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/ble-button/internal/ble"
	"github.com/chaz8081/ble-button/internal/dispatch"
	"github.com/chaz8081/ble-button/internal/edge"
	"github.com/chaz8081/ble-button/internal/feedback"
	"github.com/chaz8081/ble-button/internal/state"
)

// State is the peripheral lifecycle state.
type State int32

const (
	Uninitialized State = iota
	StackInitializing
	Advertising
	Connected
	InitFailed // terminal, no retry
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case StackInitializing:
		return "stack-initializing"
	case Advertising:
		return "advertising"
	case Connected:
		return "connected"
	case InitFailed:
		return "init-failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// eventRetryDelay is how long a rejected ProcessEvents post waits before it
// is posted again.
const eventRetryDelay = 10 * time.Millisecond

// PowerDomain applies the board power rails.
type PowerDomain interface {
	PowerUp(ctx context.Context) error
}

// Deps are the collaborators the controller orchestrates. Power and Beeper
// are optional.
type Deps struct {
	Stack  ble.Stack
	Queue  *dispatch.Dispatcher
	Source edge.Source
	Power  PowerDomain
	Beeper feedback.Beeper
}

// Options configures the advertised service.
type Options struct {
	DeviceName          string
	AdvertisingInterval time.Duration
	ActiveLow           bool
	Publisher           state.Options
}

// DefaultOptions returns the reference device settings.
func DefaultOptions() Options {
	return Options{
		DeviceName:          ble.DefaultDeviceName,
		AdvertisingInterval: ble.DefaultAdvertisingRate,
		Publisher:           state.DefaultOptions(),
	}
}

// Controller is the button peripheral.
type Controller struct {
	stack  ble.Stack
	queue  *dispatch.Dispatcher
	source edge.Source
	power  PowerDomain
	beeper feedback.Beeper
	opts   Options

	state   atomic.Int32
	errMu   sync.Mutex
	initErr error

	// Set while a ProcessEvents post is waiting to be retried.
	eventsRetry atomic.Bool

	// Owned by the dispatcher goroutine.
	publisher *state.Publisher
}

// New creates a Controller. Stack, Queue and Source are required.
func New(deps Deps, opts Options) (*Controller, error) {
	if deps.Stack == nil || deps.Queue == nil || deps.Source == nil {
		return nil, errors.New("controller: stack, queue and source are required")
	}
	if deps.Beeper == nil {
		deps.Beeper = feedback.Nop{}
	}
	def := DefaultOptions()
	if opts.DeviceName == "" {
		opts.DeviceName = def.DeviceName
	}
	if opts.AdvertisingInterval <= 0 {
		opts.AdvertisingInterval = def.AdvertisingInterval
	}
	if opts.Publisher == (state.Options{}) {
		opts.Publisher = def.Publisher
	}
	return &Controller{
		stack:  deps.Stack,
		queue:  deps.Queue,
		source: deps.Source,
		power:  deps.Power,
		beeper: deps.Beeper,
		opts:   opts,
	}, nil
}

// Start powers the board and begins stack initialization. It returns once
// init is under way; the rest of startup runs as a dispatcher task when the
// stack reports completion.
func (c *Controller) Start(ctx context.Context) error {
	if c.State() != Uninitialized {
		return fmt.Errorf("controller: already started (%s)", c.State())
	}

	if c.power != nil {
		if err := c.power.PowerUp(ctx); err != nil {
			return fmt.Errorf("controller: power up: %w", err)
		}
	}

	// Stack work must never run on the goroutine that signals it.
	c.stack.OnEventsPending(c.postEvents)

	c.setState(StackInitializing)
	slog.Info("[BLE] initializing stack")
	c.stack.Init(func(res ble.InitResult) {
		if err := c.queue.Post(func() { c.onInitComplete(res) }); err != nil {
			c.fail(&ble.StackInitError{Instance: res.Instance, Err: fmt.Errorf("queue init completion: %w", err)})
		}
	})
	return nil
}

// postEvents schedules stack event processing on the dispatcher. When the
// queue is full the post is retried after eventRetryDelay, so queued
// connect and disconnect callbacks are not stranded until the next signal.
// Concurrent rejections share one pending retry.
func (c *Controller) postEvents() {
	err := c.queue.Post(c.stack.ProcessEvents)
	if err == nil {
		return
	}
	if !c.eventsRetry.CompareAndSwap(false, true) {
		return
	}
	slog.Warn("[BLE] event processing deferred", "error", err, "retry", eventRetryDelay)
	time.AfterFunc(eventRetryDelay, func() {
		c.eventsRetry.Store(false)
		c.postEvents()
	})
}

// Run dispatches events until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	return c.queue.Run(ctx)
}

// RunForever dispatches events for the lifetime of the process.
func (c *Controller) RunForever() {
	c.queue.RunForever()
}

// State returns the current lifecycle state. Safe for concurrent use.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// InitErr returns the error that moved the controller to InitFailed.
func (c *Controller) InitErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.initErr
}

// Publisher returns the button state publisher, or nil before the stack is
// ready. Only use it from dispatcher tasks or after Run has stopped.
func (c *Controller) Publisher() *state.Publisher {
	return c.publisher
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Controller) fail(err error) {
	c.errMu.Lock()
	c.initErr = err
	c.errMu.Unlock()
	c.setState(InitFailed)
	slog.Error("[BLE] initialization failed, restart required", "error", err)
}

// onInitComplete finishes startup on the dispatcher goroutine.
func (c *Controller) onInitComplete(res ble.InitResult) {
	slog.Info("[BLE] init complete")
	if res.Err != nil {
		c.fail(&ble.StackInitError{Instance: res.Instance, Err: res.Err})
		return
	}
	if res.Instance != ble.DefaultInstance {
		c.fail(&ble.StackInitError{Instance: res.Instance, Err: ble.ErrNotDefaultInstance})
		return
	}

	if addr, err := c.stack.Address(); err == nil {
		slog.Info("[BLE] device address", "service", c.opts.DeviceName, "mac", addr)
	} else {
		slog.Debug("[BLE] device address unavailable", "error", err)
	}

	c.stack.OnDisconnect(c.onDisconnect)
	c.stack.OnConnect(c.onConnect)

	// Tasks posted by the edge handlers run after this one, so the
	// publisher exists by the time any of them executes.
	edge.Bind(c.source, c.queue, sinkFunc(c.updateButton), c.opts.ActiveLow)

	pub, err := state.NewPublisher(c.stack, false, c.opts.Publisher)
	if err != nil {
		c.fail(fmt.Errorf("controller: create button service: %w", err))
		return
	}
	c.publisher = pub

	if err := c.stack.StartAdvertising(c.advertising()); err != nil {
		c.fail(fmt.Errorf("controller: start advertising: %w", err))
		return
	}
	c.setState(Advertising)
	slog.Info("[BLE] ready", "name", c.opts.DeviceName, "interval", c.opts.AdvertisingInterval)
}

func (c *Controller) advertising() ble.AdvertisingConfig {
	return ble.AdvertisingConfig{
		LocalName:    c.opts.DeviceName,
		ServiceUUIDs: []uint16{c.opts.Publisher.ServiceUUID},
		Interval:     c.opts.AdvertisingInterval,
		Connectable:  true,
	}
}

func (c *Controller) updateButton(pressed bool) {
	if c.publisher == nil {
		slog.Debug("[STATE] button edge before service registration", "pressed", pressed)
		return
	}
	c.publisher.Update(pressed)
	slog.Debug("[STATE] button updated", "pressed", pressed)
}

func (c *Controller) onConnect() {
	slog.Info("[BLE] connected")
	c.setState(Connected)
	c.beeper.Beep()
}

func (c *Controller) onDisconnect() {
	slog.Info("[BLE] disconnected, restarting advertising")
	if err := c.stack.StartAdvertising(c.advertising()); err != nil {
		slog.Warn("[BLE] restart advertising failed", "error", err)
	}
	c.setState(Advertising)
	c.beeper.Beep()
}

// sinkFunc adapts a function to state.Sink.
type sinkFunc func(pressed bool)

func (f sinkFunc) Update(pressed bool) { f(pressed) }
