package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// DefaultSynthDevices is the packed device list the synth backend exposes
// when none is configured.
const DefaultSynthDevices = "Synth Tone\x00Synth Silence\x00\x00"

// SynthConfig configures the tone generator backend.
type SynthConfig struct {
	// Devices is a packed NUL-terminated name list, see ParseDeviceList.
	Devices   string
	Frequency float64 // Hz
	Amplitude float64 // 0.0 to 1.0
	// Now is the clock used to pace generation; defaults to time.Now.
	Now func() time.Time
}

// Synth is a capture backend that generates a sine wave in real time.
// Devices whose name contains "Silence" produce zero samples.
type Synth struct {
	cfg     SynthConfig
	devices []string
}

// NewSynth creates a synthetic capture backend
func NewSynth(cfg SynthConfig) *Synth {
	if cfg.Devices == "" {
		cfg.Devices = DefaultSynthDevices
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = 440
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = 0.5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Synth{cfg: cfg, devices: ParseDeviceList(cfg.Devices)}
}

func (s *Synth) CaptureDevices() ([]string, error) {
	return append([]string(nil), s.devices...), nil
}

func (s *Synth) DefaultCaptureDevice() (string, error) {
	if len(s.devices) == 0 {
		return "", errors.New("no capture devices")
	}
	return s.devices[0], nil
}

func (s *Synth) SupportsExtension(name string) bool {
	return name == ExtCapture && len(s.devices) > 0
}

func (s *Synth) OpenCapture(name string, sampleRate int) (Handle, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if name == "" {
		var err error
		if name, err = s.DefaultCaptureDevice(); err != nil {
			return nil, err
		}
	}
	for _, d := range s.devices {
		if d == name {
			amplitude := s.cfg.Amplitude
			if strings.Contains(strings.ToLower(name), "silence") {
				amplitude = 0
			}
			return &synthHandle{
				now:        s.cfg.Now,
				sampleRate: sampleRate,
				frequency:  s.cfg.Frequency,
				amplitude:  amplitude,
			}, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

func (s *Synth) Close() error {
	return nil
}

type synthHandle struct {
	now        func() time.Time
	sampleRate int
	frequency  float64
	amplitude  float64

	mu       sync.Mutex
	running  bool
	started  time.Time
	produced int64 // samples generated since start
	pending  int   // frozen count after stop
	phase    float64
	closed   bool
}

func (h *synthHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("capture closed")
	}
	h.running = true
	h.started = h.now()
	h.produced = 0
	h.pending = 0
	return nil
}

// availableLocked caps the backlog at one second of audio.
func (h *synthHandle) availableLocked() int {
	if !h.running {
		return h.pending
	}
	elapsed := h.now().Sub(h.started)
	rate := int64(h.sampleRate)
	due := int64(elapsed/time.Second)*rate + int64(elapsed%time.Second)*rate/int64(time.Second)
	n := due - h.produced
	if n > int64(h.sampleRate) {
		h.produced = due - int64(h.sampleRate)
		n = int64(h.sampleRate)
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

func (h *synthHandle) Available() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.availableLocked(), nil
}

func (h *synthHandle) Read(dst []int16) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if avail := h.availableLocked(); len(dst) > avail {
		return fmt.Errorf("short read: wanted %d samples, %d available", len(dst), avail)
	}

	step := 2 * math.Pi * h.frequency / float64(h.sampleRate)
	for i := range dst {
		dst[i] = int16(h.amplitude * math.MaxInt16 * math.Sin(h.phase))
		h.phase += step
		if h.phase > 2*math.Pi {
			h.phase -= 2 * math.Pi
		}
	}
	if h.running {
		h.produced += int64(len(dst))
	} else {
		h.pending -= len(dst)
	}
	return nil
}

func (h *synthHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		h.pending = h.availableLocked()
		h.running = false
	}
	return nil
}

func (h *synthHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.running = false
	h.pending = 0
	return nil
}
