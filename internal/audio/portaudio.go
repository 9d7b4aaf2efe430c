package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

type portAudioBackend struct {
	log zerolog.Logger
}

// NewPortAudio creates a PortAudio-based capture backend
func NewPortAudio(log zerolog.Logger) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioBackend{log: log.With().Str("backend", KindPortAudio).Logger()}, nil
}

func (p *portAudioBackend) CaptureDevices() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

func (p *portAudioBackend) DefaultCaptureDevice() (string, error) {
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", fmt.Errorf("failed to get default input device: %w", err)
	}
	return device.Name, nil
}

// SupportsExtension reports capture support under the canonical spelling
// once at least one input device is present.
func (p *portAudioBackend) SupportsExtension(name string) bool {
	if name != ExtCapture {
		return false
	}
	names, err := p.CaptureDevices()
	return err == nil && len(names) > 0
}

func (p *portAudioBackend) findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == name && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

func (p *portAudioBackend) OpenCapture(name string, sampleRate int) (Handle, error) {
	device, err := p.findDevice(name)
	if err != nil {
		return nil, err
	}

	h := &portAudioHandle{}

	// Open stream: mono, int16, blocking reads sized by h.buf
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, &h.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	h.stream = stream

	p.log.Debug().Str("device", device.Name).Int("sample_rate", sampleRate).Msg("Opened capture stream")
	return h, nil
}

func (p *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

// portAudioHandle wraps a blocking input stream. PortAudio refuses reads
// on a stopped stream, so Stop moves whatever is still readable into
// pending and later reads are served from there.
type portAudioHandle struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	pending []int16
	stopped bool
}

func (h *portAudioHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	h.stopped = false
	return nil
}

func (h *portAudioHandle) Available() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return len(h.pending), nil
	}
	n, err := h.stream.AvailableToRead()
	if err != nil {
		return 0, fmt.Errorf("failed to query available frames: %w", err)
	}
	return n, nil
}

func (h *portAudioHandle) Read(dst []int16) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		if len(dst) > len(h.pending) {
			return errors.New("read past end of drained capture")
		}
		copy(dst, h.pending)
		h.pending = h.pending[len(dst):]
		return nil
	}
	return h.readLocked(dst)
}

func (h *portAudioHandle) readLocked(dst []int16) error {
	h.buf = dst
	defer func() { h.buf = nil }()

	if err := h.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return fmt.Errorf("failed to read audio stream: %w", err)
	}
	return nil
}

func (h *portAudioHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}

	if n, err := h.stream.AvailableToRead(); err == nil && n > 0 {
		tail := make([]int16, n)
		if err := h.readLocked(tail); err == nil {
			h.pending = tail
		}
	}

	h.stopped = true
	if err := h.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	return nil
}

func (h *portAudioHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = nil
	if err := h.stream.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}
