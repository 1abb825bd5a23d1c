// Package edge reports rising and falling transitions of a digital input.
//
// Edge handlers run on the source's own goroutine, the stand-in for an
// interrupt context. They must return quickly; Bind installs handlers
// whose only action is posting a task to a dispatcher. Transitions are
// forwarded raw, with no debouncing.
package edge

import (
	"sync/atomic"

	"github.com/chaz8081/ble-button/internal/state"
)

// Edge is a button transition.
type Edge int

const (
	// Pressed is the edge that makes the button state true.
	Pressed Edge = iota
	// Released is the edge that makes the button state false.
	Released
)

func (e Edge) String() string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Source reports input transitions. Registering a handler replaces the
// previous one.
type Source interface {
	OnRise(fn func())
	OnFall(fn func())
	Close() error
}

// Handlers holds one rise and one fall handler. The zero value is ready to
// use and safe to update while edges are firing.
type Handlers struct {
	rise atomic.Pointer[func()]
	fall atomic.Pointer[func()]
}

// OnRise sets the rising-edge handler. nil removes it.
func (h *Handlers) OnRise(fn func()) { store(&h.rise, fn) }

// OnFall sets the falling-edge handler. nil removes it.
func (h *Handlers) OnFall(fn func()) { store(&h.fall, fn) }

// Rise invokes the rising-edge handler, if any.
func (h *Handlers) Rise() { call(&h.rise) }

// Fall invokes the falling-edge handler, if any.
func (h *Handlers) Fall() { call(&h.fall) }

func store(p *atomic.Pointer[func()], fn func()) {
	if fn == nil {
		p.Store(nil)
		return
	}
	p.Store(&fn)
}

func call(p *atomic.Pointer[func()]) {
	if fn := p.Load(); fn != nil {
		(*fn)()
	}
}

// Poster enqueues work for the application goroutine without blocking.
type Poster interface {
	Post(task func()) error
}

// Bind routes src transitions to sink through q. A rising edge posts
// Pressed and a falling edge posts Released; activeLow swaps the two for
// buttons wired to ground. A full queue drops the edge.
func Bind(src Source, q Poster, sink state.Sink, activeLow bool) {
	rise, fall := Pressed, Released
	if activeLow {
		rise, fall = Released, Pressed
	}
	src.OnRise(func() { _ = q.Post(func() { Apply(sink, rise) }) })
	src.OnFall(func() { _ = q.Post(func() { Apply(sink, fall) }) })
}

// Apply delivers e to sink.
func Apply(sink state.Sink, e Edge) {
	sink.Update(e == Pressed)
}
