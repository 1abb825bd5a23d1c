package feedback

import (
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// PWMBeeper drives a piezo buzzer with hardware PWM.
type PWMBeeper struct {
	pin  gpio.PinOut
	tone Tone

	mu    sync.Mutex
	timer *time.Timer
}

// Compile-time check that PWMBeeper implements Beeper.
var _ Beeper = (*PWMBeeper)(nil)

// NewPWMBeeper creates a beeper on pin. Zero tone fields take defaults.
func NewPWMBeeper(pin gpio.PinOut, tone Tone) *PWMBeeper {
	return &PWMBeeper{pin: pin, tone: tone.withDefaults()}
}

// Beep starts the tone and schedules the mute. A beep during a running cue
// restarts the cue.
func (b *PWMBeeper) Beep() {
	duty := gpio.DutyMax * gpio.Duty(b.tone.DutyPercent) / 100
	freq := physic.Frequency(b.tone.FrequencyHz) * physic.Hertz

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	if err := b.pin.PWM(duty, freq); err != nil {
		slog.Warn("[FEEDBACK] buzzer PWM failed", "pin", b.pin.String(), "error", err)
		return
	}
	b.timer = time.AfterFunc(b.tone.Duration, b.mute)
}

func (b *PWMBeeper) mute() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pin.Out(gpio.Low); err != nil {
		slog.Warn("[FEEDBACK] buzzer mute failed", "pin", b.pin.String(), "error", err)
	}
}

// Close stops a pending cue and silences the buzzer.
func (b *PWMBeeper) Close() error {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	return b.pin.Out(gpio.Low)
}
