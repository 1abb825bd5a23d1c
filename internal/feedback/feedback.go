// Package feedback plays the short audible cue on BLE connect and
// disconnect. Cues are cosmetic: Beep starts the cue and returns, and
// failures are logged, never reported.
package feedback

import "time"

// Cue defaults, matching the piezo buzzer on the reference board.
const (
	DefaultFrequencyHz = 2050
	DefaultDutyPercent = 10
	DefaultDuration    = 100 * time.Millisecond
)

// Beeper plays one cue per call.
type Beeper interface {
	Beep()
}

// Nop is a Beeper that does nothing.
type Nop struct{}

// Beep does nothing.
func (Nop) Beep() {}

// Tone describes a single square or sine cue.
type Tone struct {
	FrequencyHz int
	DutyPercent int
	Duration    time.Duration
}

// DefaultTone returns the reference board's cue.
func DefaultTone() Tone {
	return Tone{
		FrequencyHz: DefaultFrequencyHz,
		DutyPercent: DefaultDutyPercent,
		Duration:    DefaultDuration,
	}
}

// withDefaults fills zero fields from DefaultTone.
func (t Tone) withDefaults() Tone {
	d := DefaultTone()
	if t.FrequencyHz <= 0 {
		t.FrequencyHz = d.FrequencyHz
	}
	if t.DutyPercent <= 0 || t.DutyPercent > 100 {
		t.DutyPercent = d.DutyPercent
	}
	if t.Duration <= 0 {
		t.Duration = d.Duration
	}
	return t
}
