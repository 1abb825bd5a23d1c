//go:build !nohotkey

// Package hotkey turns a global key combination into button edges, for
// hosts without a GPIO button. Key down is a rising edge and key up a
// falling one. Keyboard auto-repeat produces repeated rising edges, which
// are forwarded.
//
// The listener uses gohook, which needs cgo and X11 on Linux. Build with
// -tags nohotkey for headless boards; New then returns ErrUnsupported.
package hotkey

import (
	"errors"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/chaz8081/ble-button/internal/edge"
)

// ErrUnsupported is returned by New when the binary was built without
// keyboard hook support.
var ErrUnsupported = errors.New("hotkey: keyboard hooks not compiled in (built with nohotkey)")

// Listener watches for a key combination and reports it as button edges.
type Listener struct {
	edge.Handlers

	keys []string
	done chan struct{}
	once sync.Once
}

// Compile-time check that Listener implements edge.Source.
var _ edge.Source = (*Listener)(nil)

// New creates a Listener for the given lowercase key names
// (e.g., ["ctrl", "shift", "b"]).
func New(keys []string) (*Listener, error) {
	if len(keys) == 0 {
		return nil, errors.New("hotkey: no keys given")
	}
	return &Listener{
		keys: keys,
		done: make(chan struct{}),
	}, nil
}

// Start listens for the key combination. It blocks until Close is called,
// so run it in a goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) {
		l.Rise()
	})
	hook.Register(hook.KeyUp, l.keys, func(e hook.Event) {
		l.Fall()
	})

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
}

// Close stops the listener. It is safe to call multiple times.
func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.done)
	})
	return nil
}
