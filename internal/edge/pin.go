package edge

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// pollInterval bounds how long the watcher waits for an edge before it
// checks for Close.
const pollInterval = 100 * time.Millisecond

// PinSource watches a GPIO pin for edges in both directions.
type PinSource struct {
	Handlers

	pin  gpio.PinIO
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Compile-time check that PinSource implements Source.
var _ Source = (*PinSource)(nil)

// NewPinSource configures pin as an input with the given pull and starts
// watching it. Call Close to stop.
func NewPinSource(pin gpio.PinIO, pull gpio.Pull) (*PinSource, error) {
	if pin == nil {
		return nil, fmt.Errorf("edge: nil pin")
	}
	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("edge: configure %s for edges: %w", pin, err)
	}

	s := &PinSource{
		pin:  pin,
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.watch()
	return s, nil
}

// watch fires Rise when an edge leaves the pin high and Fall when it
// leaves it low.
func (s *PinSource) watch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if !s.pin.WaitForEdge(pollInterval) {
			continue
		}
		if s.pin.Read() == gpio.High {
			s.Rise()
		} else {
			s.Fall()
		}
	}
}

// Close stops the watcher. It is safe to call multiple times.
func (s *PinSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		// Halt unblocks a pending WaitForEdge on real hardware.
		if herr := s.pin.Halt(); herr != nil {
			slog.Debug("[EDGE] halt pin", "pin", s.pin.String(), "error", herr)
		}
		s.wg.Wait()
		err = s.pin.In(gpio.PullNoChange, gpio.NoEdge)
	})
	return err
}

// ParsePull maps a config pull name to a gpio.Pull.
func ParsePull(name string) (gpio.Pull, error) {
	switch strings.ToLower(name) {
	case "up":
		return gpio.PullUp, nil
	case "down":
		return gpio.PullDown, nil
	case "none", "float", "":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("edge: unknown pull %q (supported: up, down, none)", name)
	}
}
