//go:build nohotkey

package hotkey

import (
	"errors"

	"github.com/chaz8081/ble-button/internal/edge"
)

// ErrUnsupported is returned by New when the binary was built without
// keyboard hook support.
var ErrUnsupported = errors.New("hotkey: keyboard hooks not compiled in (built with nohotkey)")

// Listener is unavailable in nohotkey builds.
type Listener struct {
	edge.Handlers
}

var _ edge.Source = (*Listener)(nil)

// New always fails with ErrUnsupported.
func New(keys []string) (*Listener, error) {
	return nil, ErrUnsupported
}

// Start returns immediately.
func (l *Listener) Start() {}

// Close does nothing.
func (l *Listener) Close() error { return nil }
