package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.Name != "LaunchMissileButton" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "LaunchMissileButton")
	}
	if cfg.Device.AdvertisingInterval != time.Second {
		t.Errorf("Device.AdvertisingInterval = %v, want 1s", cfg.Device.AdvertisingInterval)
	}
	if cfg.Button.Source != "key" {
		t.Errorf("Button.Source = %q, want %q", cfg.Button.Source, "key")
	}
	if len(cfg.Button.Keys) != 3 {
		t.Errorf("Button.Keys length = %d, want 3", len(cfg.Button.Keys))
	}
	if cfg.Dispatch.Capacity != 10 {
		t.Errorf("Dispatch.Capacity = %d, want 10", cfg.Dispatch.Capacity)
	}
	if cfg.Board.Enabled {
		t.Error("Board.Enabled should default to false")
	}
	if cfg.Board.Revision != "v12" {
		t.Errorf("Board.Revision = %q, want %q", cfg.Board.Revision, "v12")
	}
	if cfg.Feedback.Mode != "none" {
		t.Errorf("Feedback.Mode = %q, want %q", cfg.Feedback.Mode, "none")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device:
  name: PanicButton
  advertising_interval: 500ms
button:
  source: pin
  pin: GPIO27
  pull: up
  active_low: true
dispatch:
  capacity: 32
board:
  enabled: true
  revision: v10
  settle: 250ms
  aliases:
    PB_1: GPIO5
feedback:
  mode: pwm
  pin: GPIO18
  frequency_hz: 4000
  duty_percent: 25
  duration: 50ms
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "PanicButton" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "PanicButton")
	}
	if cfg.Device.AdvertisingInterval != 500*time.Millisecond {
		t.Errorf("Device.AdvertisingInterval = %v, want 500ms", cfg.Device.AdvertisingInterval)
	}
	if cfg.Button.Source != "pin" || cfg.Button.Pin != "GPIO27" || cfg.Button.Pull != "up" || !cfg.Button.ActiveLow {
		t.Errorf("Button = %+v", cfg.Button)
	}
	if len(cfg.Button.Keys) != 3 {
		t.Errorf("Button.Keys = %v, want defaults kept", cfg.Button.Keys)
	}
	if cfg.Dispatch.Capacity != 32 {
		t.Errorf("Dispatch.Capacity = %d, want 32", cfg.Dispatch.Capacity)
	}
	if !cfg.Board.Enabled || cfg.Board.Revision != "v10" || cfg.Board.Settle != 250*time.Millisecond {
		t.Errorf("Board = %+v", cfg.Board)
	}
	if cfg.Board.ResetPin != "RST_BLE" {
		t.Errorf("Board.ResetPin = %q, want default %q", cfg.Board.ResetPin, "RST_BLE")
	}
	if cfg.Board.Aliases["PB_1"] != "GPIO5" {
		t.Errorf("Board.Aliases = %v", cfg.Board.Aliases)
	}
	if cfg.Feedback.Mode != "pwm" || cfg.Feedback.FrequencyHz != 4000 || cfg.Feedback.DutyPercent != 25 {
		t.Errorf("Feedback = %+v", cfg.Feedback)
	}
	if cfg.Feedback.Duration != 50*time.Millisecond {
		t.Errorf("Feedback.Duration = %v, want 50ms", cfg.Feedback.Duration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
feedback:
  mode: tone
  sound_file: ~/sounds/beep.wav
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "sounds/beep.wav")
	if cfg.Feedback.SoundFile != expected {
		t.Errorf("Feedback.SoundFile = %q, want %q", cfg.Feedback.SoundFile, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("device: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty device name",
			modify:  func(c *Config) { c.Device.Name = "" },
			wantErr: true,
		},
		{
			name:    "device name fills the advertisement",
			modify:  func(c *Config) { c.Device.Name = strings.Repeat("x", 22) },
			wantErr: false,
		},
		{
			name:    "device name too long for the advertisement",
			modify:  func(c *Config) { c.Device.Name = strings.Repeat("x", 23) },
			wantErr: true,
		},
		{
			name:    "advertising interval too short",
			modify:  func(c *Config) { c.Device.AdvertisingInterval = time.Millisecond },
			wantErr: true,
		},
		{
			name:    "invalid button source",
			modify:  func(c *Config) { c.Button.Source = "gamepad" },
			wantErr: true,
		},
		{
			name:    "pin source without pin",
			modify:  func(c *Config) { c.Button.Source = "pin"; c.Button.Pin = "" },
			wantErr: true,
		},
		{
			name:    "key source without keys",
			modify:  func(c *Config) { c.Button.Keys = nil },
			wantErr: true,
		},
		{
			name:    "invalid pull",
			modify:  func(c *Config) { c.Button.Pull = "sideways" },
			wantErr: true,
		},
		{
			name:    "zero dispatch capacity",
			modify:  func(c *Config) { c.Dispatch.Capacity = 0 },
			wantErr: true,
		},
		{
			name:    "unknown board revision",
			modify:  func(c *Config) { c.Board.Enabled = true; c.Board.Revision = "v11" },
			wantErr: true,
		},
		{
			name:    "unknown revision ignored when board disabled",
			modify:  func(c *Config) { c.Board.Revision = "v11" },
			wantErr: false,
		},
		{
			name: "custom rails replace revision",
			modify: func(c *Config) {
				c.Board.Enabled = true
				c.Board.Revision = ""
				c.Board.Rails = []RailConfig{{Pin: "GPIO5", Level: "high"}}
			},
			wantErr: false,
		},
		{
			name: "rail with bad level",
			modify: func(c *Config) {
				c.Board.Enabled = true
				c.Board.Rails = []RailConfig{{Pin: "GPIO5", Level: "on"}}
			},
			wantErr: true,
		},
		{
			name:    "invalid feedback mode",
			modify:  func(c *Config) { c.Feedback.Mode = "siren" },
			wantErr: true,
		},
		{
			name:    "pwm feedback without pin",
			modify:  func(c *Config) { c.Feedback.Mode = "pwm"; c.Feedback.Pin = "" },
			wantErr: true,
		},
		{
			name:    "tone feedback with bad duty",
			modify:  func(c *Config) { c.Feedback.Mode = "tone"; c.Feedback.DutyPercent = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel(\"verbose\") should fail")
	}

	cfg := Default()
	cfg.LogLevel = "bogus"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info fallback", cfg.SlogLevel())
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "ble-button", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	// Verify file exists and contains valid YAML
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}

	// The written file loads back to the defaults.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.AdvertisingInterval != time.Second {
		t.Errorf("round-trip AdvertisingInterval = %v, want 1s", cfg.Device.AdvertisingInterval)
	}
	if cfg.Feedback.Duration != 100*time.Millisecond {
		t.Errorf("round-trip Feedback.Duration = %v, want 100ms", cfg.Feedback.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("round-trip Validate() error = %v", err)
	}
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	if _, err := WriteDefault(); err != nil {
		t.Fatalf("first WriteDefault() error = %v", err)
	}
	if _, err := WriteDefault(); err == nil {
		t.Error("second WriteDefault() should refuse to overwrite")
	}
}
