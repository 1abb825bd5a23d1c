// Package board brings up the power rails and radio reset line before the
// BLE stack starts. Pins are resolved by name through periph.io, so the
// same rail tables work on any host whose pins have matching names or
// registered aliases.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Default bring-up timings.
const (
	DefaultPreDelay = 10 * time.Millisecond
	DefaultSettle   = time.Second
)

// Rail is one output driven to a fixed level at power-up.
type Rail struct {
	Pin   string
	High  bool
	Label string
}

// PinLookup resolves a pin by name.
type PinLookup func(name string) (gpio.PinIO, error)

// Host returns a PinLookup backed by the periph.io host drivers. Drivers are
// initialized on first use. Each alias maps a board signal name to a host
// pin name (e.g., "PA_1" -> "GPIO17").
func Host(aliases map[string]string) PinLookup {
	var once sync.Once
	var initErr error
	return func(name string) (gpio.PinIO, error) {
		once.Do(func() {
			if _, err := host.Init(); err != nil {
				initErr = fmt.Errorf("board: init host drivers: %w", err)
				return
			}
			initErr = registerAliases(aliases)
		})
		if initErr != nil {
			return nil, initErr
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("board: unknown pin %q", name)
		}
		return p, nil
	}
}

func registerAliases(aliases map[string]string) error {
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	for _, alias := range names {
		if err := gpioreg.RegisterAlias(alias, aliases[alias]); err != nil {
			return fmt.Errorf("board: alias %s -> %s: %w", alias, aliases[alias], err)
		}
	}
	return nil
}

// Options configures the power-up sequence.
type Options struct {
	Rails    []Rail
	ResetPin string        // radio reset, held high until the rails settle
	PreDelay time.Duration // wait before touching any pin
	Settle   time.Duration // wait between rails and reset release
}

// Board drives the power domain.
type Board struct {
	lookup PinLookup
	opts   Options
}

// New creates a Board resolving pins with lookup.
func New(lookup PinLookup, opts Options) *Board {
	if opts.PreDelay < 0 {
		opts.PreDelay = 0
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Board{lookup: lookup, opts: opts}
}

// PowerUp drives every rail in order, holds the radio in reset while the
// rails settle, then releases it.
func (b *Board) PowerUp(ctx context.Context) error {
	if err := sleep(ctx, b.opts.PreDelay); err != nil {
		return err
	}
	slog.Info("[BOARD] initializing board", "rails", len(b.opts.Rails))

	for _, r := range b.opts.Rails {
		if err := b.drive(r.Pin, r.High); err != nil {
			return fmt.Errorf("board: rail %q: %w", r.Label, err)
		}
		slog.Debug("[BOARD] rail set", "pin", r.Pin, "high", r.High, "label", r.Label)
	}

	if b.opts.ResetPin == "" {
		slog.Info("[BOARD] board ready")
		return nil
	}

	if err := b.drive(b.opts.ResetPin, true); err != nil {
		return fmt.Errorf("board: assert radio reset: %w", err)
	}
	if err := sleep(ctx, b.opts.Settle); err != nil {
		return err
	}
	if err := b.drive(b.opts.ResetPin, false); err != nil {
		return fmt.Errorf("board: release radio reset: %w", err)
	}

	slog.Info("[BOARD] board ready")
	return nil
}

func (b *Board) drive(name string, high bool) error {
	p, err := b.lookup(name)
	if err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.Out(level); err != nil {
		return fmt.Errorf("drive %s %s: %w", name, level, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
