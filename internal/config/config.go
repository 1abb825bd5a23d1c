package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Button   ButtonConfig   `yaml:"button"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Board    BoardConfig    `yaml:"board"`
	Feedback FeedbackConfig `yaml:"feedback"`
	LogLevel string         `yaml:"log_level"`
}

// DeviceConfig holds the advertised identity.
type DeviceConfig struct {
	Name                string        `yaml:"name"`
	AdvertisingInterval time.Duration `yaml:"advertising_interval"`
}

// ButtonConfig selects where button edges come from.
type ButtonConfig struct {
	Source    string   `yaml:"source"` // "pin" or "key"
	Pin       string   `yaml:"pin"`
	Pull      string   `yaml:"pull"` // "up", "down" or "none"
	ActiveLow bool     `yaml:"active_low"`
	Keys      []string `yaml:"keys"`
}

// DispatchConfig sizes the event queue.
type DispatchConfig struct {
	Capacity int `yaml:"capacity"`
}

// BoardConfig holds power-up settings.
type BoardConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Revision string            `yaml:"revision"` // "v10" or "v12"
	Rails    []RailConfig      `yaml:"rails"`    // overrides the revision preset
	ResetPin string            `yaml:"reset_pin"`
	Settle   time.Duration     `yaml:"settle"`
	Aliases  map[string]string `yaml:"aliases"`
}

// RailConfig is one power rail output.
type RailConfig struct {
	Pin   string `yaml:"pin"`
	Level string `yaml:"level"` // "high" or "low"
	Label string `yaml:"label"`
}

// FeedbackConfig holds connection cue settings.
type FeedbackConfig struct {
	Mode        string        `yaml:"mode"` // "none", "pwm" or "tone"
	Pin         string        `yaml:"pin"`
	FrequencyHz int           `yaml:"frequency_hz"`
	DutyPercent int           `yaml:"duty_percent"`
	Duration    time.Duration `yaml:"duration"`
	SoundFile   string        `yaml:"sound_file"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ble-button")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values. The defaults run
// on a desktop: keyboard button, no board bring-up, no cue.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:                "LaunchMissileButton",
			AdvertisingInterval: time.Second,
		},
		Button: ButtonConfig{
			Source: "key",
			Pin:    "GPIO17",
			Pull:   "down",
			Keys:   []string{"ctrl", "shift", "b"},
		},
		Dispatch: DispatchConfig{
			Capacity: 10,
		},
		Board: BoardConfig{
			Enabled:  false,
			Revision: "v12",
			ResetPin: "RST_BLE",
			Settle:   time.Second,
		},
		Feedback: FeedbackConfig{
			Mode:        "none",
			Pin:         "PF_7",
			FrequencyHz: 2050,
			DutyPercent: 10,
			Duration:    100 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in feedback.sound_file is expanded to the
// user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Feedback.SoundFile = expandTilde(cfg.Feedback.SoundFile)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath, creating
// the directory if needed. It refuses to overwrite an existing file.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// maxDeviceNameLen is what is left of a 31-byte legacy advertisement after
// the flags (3 bytes), the one-entry 16-bit service UUID list (4 bytes) and
// the local name's own length and type header (2 bytes).
const maxDeviceNameLen = 31 - 3 - 4 - 2

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("device.name must not be empty")
	}
	if len(c.Device.Name) > maxDeviceNameLen {
		return fmt.Errorf("device.name must be at most %d bytes, got %d", maxDeviceNameLen, len(c.Device.Name))
	}
	if c.Device.AdvertisingInterval < 20*time.Millisecond || c.Device.AdvertisingInterval > 10240*time.Millisecond {
		return fmt.Errorf("device.advertising_interval must be between 20ms and 10.24s, got %s", c.Device.AdvertisingInterval)
	}

	switch c.Button.Source {
	case "pin":
		if c.Button.Pin == "" {
			return fmt.Errorf("button.pin must not be empty when button.source is \"pin\"")
		}
	case "key":
		if len(c.Button.Keys) == 0 {
			return fmt.Errorf("button.keys must not be empty when button.source is \"key\"")
		}
	default:
		return fmt.Errorf("button.source must be \"pin\" or \"key\", got %q", c.Button.Source)
	}

	switch c.Button.Pull {
	case "up", "down", "none":
	default:
		return fmt.Errorf("button.pull must be up, down, or none, got %q", c.Button.Pull)
	}

	if c.Dispatch.Capacity <= 0 {
		return fmt.Errorf("dispatch.capacity must be > 0")
	}

	if c.Board.Enabled {
		if len(c.Board.Rails) == 0 {
			switch c.Board.Revision {
			case "v10", "v12":
			default:
				return fmt.Errorf("board.revision must be \"v10\" or \"v12\", got %q", c.Board.Revision)
			}
		}
		for i, r := range c.Board.Rails {
			if r.Pin == "" {
				return fmt.Errorf("board.rails[%d].pin must not be empty", i)
			}
			switch r.Level {
			case "high", "low":
			default:
				return fmt.Errorf("board.rails[%d].level must be \"high\" or \"low\", got %q", i, r.Level)
			}
		}
		if c.Board.Settle < 0 {
			return fmt.Errorf("board.settle must not be negative")
		}
	}

	switch c.Feedback.Mode {
	case "none":
	case "pwm":
		if c.Feedback.Pin == "" {
			return fmt.Errorf("feedback.pin must not be empty when feedback.mode is \"pwm\"")
		}
	case "tone":
	default:
		return fmt.Errorf("feedback.mode must be none, pwm, or tone, got %q", c.Feedback.Mode)
	}
	if c.Feedback.Mode != "none" {
		if c.Feedback.FrequencyHz <= 0 {
			return fmt.Errorf("feedback.frequency_hz must be > 0")
		}
		if c.Feedback.DutyPercent <= 0 || c.Feedback.DutyPercent > 100 {
			return fmt.Errorf("feedback.duty_percent must be in 1..100, got %d", c.Feedback.DutyPercent)
		}
		if c.Feedback.Duration <= 0 {
			return fmt.Errorf("feedback.duration must be > 0")
		}
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLogLevel maps a log_level value to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn, or error, got %q", level)
	}
}

// SlogLevel returns the configured level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	l, _ := ParseLogLevel(c.LogLevel)
	return l
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
