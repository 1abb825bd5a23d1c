// Package dispatch provides a bounded, single-consumer FIFO work queue.
//
// Producers (edge watchers, BLE library callbacks) call Post from any
// goroutine; Post never blocks. A single application goroutine drains the
// queue with Run, executing each task to completion before the next one.
// State touched only from tasks therefore needs no locking.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// DefaultCapacity is the queue size used when New is given a non-positive capacity.
const DefaultCapacity = 10

var (
	// ErrQueueFull is returned by Post when the queue has no free slot.
	// The task is dropped.
	ErrQueueFull = errors.New("dispatch: queue full")
	// ErrNilTask is returned by Post when called with a nil task.
	ErrNilTask = errors.New("dispatch: nil task")
)

// Dispatcher is a fixed-capacity FIFO of zero-argument tasks.
type Dispatcher struct {
	tasks   chan func()
	dropped atomic.Uint64
}

// New creates a Dispatcher holding at most capacity pending tasks.
func New(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Dispatcher{tasks: make(chan func(), capacity)}
}

// Post enqueues task without blocking. When the queue is full the task is
// dropped, the drop counter is incremented and ErrQueueFull is returned.
// Safe for concurrent use.
func (d *Dispatcher) Post(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	select {
	case d.tasks <- task:
		return nil
	default: // never block the producer
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run executes posted tasks in FIFO order until ctx is done, then returns
// ctx.Err(). Only one goroutine may call Run or DispatchPending at a time.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-d.tasks:
			d.execute(task)
		}
	}
}

// RunForever drains the queue for the lifetime of the process.
func (d *Dispatcher) RunForever() {
	_ = d.Run(context.Background())
}

// DispatchPending runs the tasks that were queued when it was called and
// returns how many ran. Tasks posted by those tasks wait for the next call.
func (d *Dispatcher) DispatchPending() int {
	n := len(d.tasks)
	ran := 0
	for ; ran < n; ran++ {
		select {
		case task := <-d.tasks:
			d.execute(task)
		default:
			return ran
		}
	}
	return ran
}

// Len returns the number of queued tasks.
func (d *Dispatcher) Len() int { return len(d.tasks) }

// Cap returns the queue capacity.
func (d *Dispatcher) Cap() int { return cap(d.tasks) }

// Dropped returns how many tasks Post has rejected because the queue was full.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// execute runs one task, recovering a panic so the loop survives it.
func (d *Dispatcher) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DISPATCH] task panicked", "panic", r)
		}
	}()
	task()
}
