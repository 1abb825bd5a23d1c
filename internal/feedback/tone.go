package feedback

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/wav"
)

// toneSampleRate is the playback rate for synthesized cues.
const toneSampleRate = 48000

// TonePlayer plays the cue through the default audio output, for hosts
// without a buzzer. The cue is either a synthesized sine tone or a WAV file.
type TonePlayer struct {
	ctx        *malgo.AllocatedContext
	samples    []int16 // mono cue
	sampleRate uint32

	// posMu guards pos. The audio thread takes it, so it is never held
	// across device calls made under mu.
	posMu sync.Mutex
	pos   int

	mu     sync.Mutex
	device *malgo.Device
	timer  *time.Timer
}

// Compile-time check that TonePlayer implements Beeper.
var _ Beeper = (*TonePlayer)(nil)

// NewTonePlayer prepares the cue. When soundFile is empty, tone is
// synthesized. Call Close() when done.
func NewTonePlayer(tone Tone, soundFile string) (*TonePlayer, error) {
	var (
		samples []int16
		rate    uint32
		err     error
	)
	if soundFile != "" {
		samples, rate, err = LoadWAV(soundFile)
		if err != nil {
			return nil, err
		}
	} else {
		samples, rate = Synthesize(tone.withDefaults(), toneSampleRate), toneSampleRate
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("feedback: initializing audio context: %w", err)
	}

	return &TonePlayer{
		ctx:        ctx,
		samples:    samples,
		sampleRate: rate,
	}, nil
}

// Beep starts the cue from the beginning.
func (p *TonePlayer) Beep() {
	p.rewind()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		deviceCfg := malgo.DefaultDeviceConfig(malgo.Playback)
		deviceCfg.Playback.Format = malgo.FormatS16
		deviceCfg.Playback.Channels = 1
		deviceCfg.SampleRate = p.sampleRate

		device, err := malgo.InitDevice(p.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
			Data: p.onData,
		})
		if err != nil {
			slog.Warn("[FEEDBACK] initializing playback device", "error", err)
			return
		}
		if err := device.Start(); err != nil {
			device.Uninit()
			slog.Warn("[FEEDBACK] starting playback device", "error", err)
			return
		}
		p.device = device
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	length := time.Duration(len(p.samples)) * time.Second / time.Duration(p.sampleRate)
	p.timer = time.AfterFunc(length+50*time.Millisecond, p.stop)
}

// stop releases the playback device once the cue has drained.
func (p *TonePlayer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
}

// Close releases all audio resources.
func (p *TonePlayer) Close() error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.mu.Unlock()

	if p.ctx != nil {
		if err := p.ctx.Uninit(); err != nil {
			return fmt.Errorf("feedback: uninitializing audio context: %w", err)
		}
		p.ctx.Free()
	}
	return nil
}

// onData is the malgo callback invoked when the device wants more frames.
func (p *TonePlayer) onData(pOutput, _ []byte, frameCount uint32) {
	p.posMu.Lock()
	p.pos = render(pOutput, frameCount, p.samples, p.pos)
	p.posMu.Unlock()
}

// rewind moves playback back to the first sample.
func (p *TonePlayer) rewind() {
	p.posMu.Lock()
	p.pos = 0
	p.posMu.Unlock()
}

// render writes up to frameCount little-endian int16 frames of samples,
// starting at pos, and pads the rest with silence. It returns the new position.
func render(out []byte, frameCount uint32, samples []int16, pos int) int {
	for i := uint32(0); i < frameCount; i++ {
		offset := i * 2
		if offset+2 > uint32(len(out)) {
			break
		}
		var s int16
		if pos < len(samples) {
			s = samples[pos]
			pos++
		}
		binary.LittleEndian.PutUint16(out[offset:offset+2], uint16(s))
	}
	return pos
}

// Synthesize returns a mono sine cue. The duty percentage scales the
// amplitude, so quieter buzzer settings give quieter cues.
func Synthesize(tone Tone, sampleRate uint32) []int16 {
	n := int(tone.Duration * time.Duration(sampleRate) / time.Second)
	amp := float64(math.MaxInt16) * float64(tone.DutyPercent) / 100 * 4
	if amp > math.MaxInt16 {
		amp = math.MaxInt16
	}
	samples := make([]int16, n)
	step := 2 * math.Pi * float64(tone.FrequencyHz) / float64(sampleRate)
	for i := range samples {
		samples[i] = int16(amp * math.Sin(step*float64(i)))
	}
	return samples
}

// LoadWAV decodes a PCM WAV file into mono int16 samples (first channel)
// and returns them with the file's sample rate.
func LoadWAV(path string) ([]int16, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("feedback: open sound file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("feedback: %s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("feedback: decode WAV: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	shift := int(dec.BitDepth) - 16

	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		s := buf.Data[i]
		if dec.BitDepth == 8 {
			s -= 128 // 8-bit PCM is unsigned
		}
		switch {
		case shift > 0:
			s >>= shift
		case shift < 0:
			s <<= -shift
		}
		samples = append(samples, int16(s))
	}
	return samples, uint32(buf.Format.SampleRate), nil
}
