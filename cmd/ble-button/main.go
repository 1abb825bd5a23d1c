// Command ble-button advertises a BLE button service and notifies
// connected centrals whenever the button is pressed or released.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/ble-button/internal/ble"
	"github.com/chaz8081/ble-button/internal/board"
	"github.com/chaz8081/ble-button/internal/config"
	"github.com/chaz8081/ble-button/internal/controller"
	"github.com/chaz8081/ble-button/internal/dispatch"
	"github.com/chaz8081/ble-button/internal/edge"
	"github.com/chaz8081/ble-button/internal/feedback"
	"github.com/chaz8081/ble-button/internal/hotkey"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/ble-button/config.yaml)")
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		fmt.Println("Wrote", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	printBanner(cfg)

	lookup := board.Host(cfg.Board.Aliases)

	// Button edge source
	source, startSource, err := newSource(cfg, lookup)
	if err != nil {
		log.Fatalf("Failed to set up button: %v", err)
	}
	defer source.Close()

	// Connection cue
	beeper, closeBeeper, err := newBeeper(cfg, lookup)
	if err != nil {
		log.Fatalf("Failed to set up feedback: %v", err)
	}
	defer closeBeeper()

	deps := controller.Deps{
		Stack:  ble.NewPeripheral(),
		Queue:  dispatch.New(cfg.Dispatch.Capacity),
		Source: source,
		Beeper: beeper,
	}
	if cfg.Board.Enabled {
		rails, err := railsFromConfig(cfg.Board)
		if err != nil {
			log.Fatalf("board: %v", err)
		}
		deps.Power = board.New(lookup, board.Options{
			Rails:    rails,
			ResetPin: cfg.Board.ResetPin,
			PreDelay: board.DefaultPreDelay,
			Settle:   cfg.Board.Settle,
		})
	}

	ctrl, err := controller.New(deps, controller.Options{
		DeviceName:          cfg.Device.Name,
		AdvertisingInterval: cfg.Device.AdvertisingInterval,
		ActiveLow:           cfg.Button.ActiveLow,
	})
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("Failed to start peripheral: %v", err)
	}
	if startSource != nil {
		go startSource()
	}

	log.Println("Initializing... Ctrl+C to quit.")
	_ = ctrl.Run(ctx)

	log.Printf("Shutting down (state: %s, dropped events: %d)", ctrl.State(), deps.Queue.Dropped())
	if err := ctrl.InitErr(); err != nil {
		log.Printf("Last init error: %v", err)
	}
	log.Println("Goodbye!")
}

// newSource builds the configured edge source. The returned start function,
// if non-nil, must run in its own goroutine.
func newSource(cfg *config.Config, lookup board.PinLookup) (edge.Source, func(), error) {
	switch cfg.Button.Source {
	case "pin":
		pin, err := lookup(cfg.Button.Pin)
		if err != nil {
			return nil, nil, err
		}
		pull, err := edge.ParsePull(cfg.Button.Pull)
		if err != nil {
			return nil, nil, err
		}
		src, err := edge.NewPinSource(pin, pull)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default: // "key"
		src, err := hotkey.New(cfg.Button.Keys)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Start, nil
	}
}

// newBeeper builds the configured connection cue and its cleanup.
func newBeeper(cfg *config.Config, lookup board.PinLookup) (feedback.Beeper, func(), error) {
	tone := feedback.Tone{
		FrequencyHz: cfg.Feedback.FrequencyHz,
		DutyPercent: cfg.Feedback.DutyPercent,
		Duration:    cfg.Feedback.Duration,
	}
	switch cfg.Feedback.Mode {
	case "pwm":
		pin, err := lookup(cfg.Feedback.Pin)
		if err != nil {
			return nil, nil, err
		}
		b := feedback.NewPWMBeeper(pin, tone)
		return b, func() { _ = b.Close() }, nil
	case "tone":
		p, err := feedback.NewTonePlayer(tone, cfg.Feedback.SoundFile)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default: // "none"
		return feedback.Nop{}, func() {}, nil
	}
}

// railsFromConfig returns the configured rails, or the revision preset
// when none are listed.
func railsFromConfig(bc config.BoardConfig) ([]board.Rail, error) {
	if len(bc.Rails) == 0 {
		return board.Preset(bc.Revision)
	}
	rails := make([]board.Rail, 0, len(bc.Rails))
	for _, r := range bc.Rails {
		rails = append(rails, board.Rail{Pin: r.Pin, High: r.Level == "high", Label: r.Label})
	}
	return rails, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== ble-button ===")
	fmt.Printf("  Device:   %s (every %s)\n", cfg.Device.Name, cfg.Device.AdvertisingInterval)
	switch cfg.Button.Source {
	case "pin":
		fmt.Printf("  Button:   pin %s (pull %s, active low: %v)\n", cfg.Button.Pin, cfg.Button.Pull, cfg.Button.ActiveLow)
	default:
		fmt.Printf("  Button:   keys %s\n", strings.Join(cfg.Button.Keys, "+"))
	}
	if cfg.Board.Enabled {
		fmt.Printf("  Board:    %s\n", cfg.Board.Revision)
	} else {
		fmt.Println("  Board:    disabled")
	}
	fmt.Printf("  Feedback: %s\n", cfg.Feedback.Mode)
	fmt.Printf("  Queue:    %d slots\n", cfg.Dispatch.Capacity)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
