package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

type malgoBackend struct {
	ctx *malgo.AllocatedContext
	log zerolog.Logger
}

// NewMalgo creates a miniaudio-based capture backend
func NewMalgo(log zerolog.Logger) (Backend, error) {
	log = log.With().Str("backend", KindMalgo).Logger()
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}
	return &malgoBackend{ctx: ctx, log: log}, nil
}

func (m *malgoBackend) devices() ([]malgo.DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	return infos, nil
}

func (m *malgoBackend) CaptureDevices() ([]string, error) {
	infos, err := m.devices()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for i := range infos {
		names = append(names, infos[i].Name())
	}
	return names, nil
}

func (m *malgoBackend) DefaultCaptureDevice() (string, error) {
	infos, err := m.devices()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.New("no capture devices")
	}
	for i := range infos {
		if infos[i].IsDefault != 0 {
			return infos[i].Name(), nil
		}
	}
	return infos[0].Name(), nil
}

// SupportsExtension accepts either capture spelling; miniaudio normalises
// the host difference itself.
func (m *malgoBackend) SupportsExtension(name string) bool {
	if name != ExtCapture && name != ExtCaptureLegacy {
		return false
	}
	infos, err := m.devices()
	return err == nil && len(infos) > 0
}

func (m *malgoBackend) OpenCapture(name string, sampleRate int) (Handle, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	if name != "" {
		infos, err := m.devices()
		if err != nil {
			return nil, err
		}
		found := false
		for i := range infos {
			if infos[i].Name() == name {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("device not found: %s", name)
		}
	}

	h := &malgoHandle{queue: newSampleQueue(sampleRate, m.log.With().Str("device", name).Logger())}
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSample []byte, frameCount uint32) {
			h.queue.pushPCM(pInputSample)
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	h.device = dev

	m.log.Debug().Str("device", name).Int("sample_rate", sampleRate).Msg("Opened capture device")
	return h, nil
}

func (m *malgoBackend) Close() error {
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

type malgoHandle struct {
	device *malgo.Device
	queue  *sampleQueue
}

func (h *malgoHandle) Start() error {
	if err := h.device.Start(); err != nil {
		return fmt.Errorf("start capture device: %w", err)
	}
	return nil
}

func (h *malgoHandle) Available() (int, error) {
	return h.queue.len(), nil
}

func (h *malgoHandle) Read(dst []int16) error {
	if n := h.queue.pop(dst); n != len(dst) {
		return fmt.Errorf("short read: wanted %d samples, got %d", len(dst), n)
	}
	return nil
}

// Stop halts the device; samples already queued remain readable.
func (h *malgoHandle) Stop() error {
	if err := h.device.Stop(); err != nil {
		return fmt.Errorf("stop capture device: %w", err)
	}
	return nil
}

func (h *malgoHandle) Close() error {
	h.device.Uninit()
	if dropped := h.queue.droppedSamples(); dropped > 0 {
		h.queue.log.Warn().Int("dropped", dropped).Msg("Capture overran its buffer during the session")
	}
	return nil
}

// sampleQueue buffers callback-delivered samples until polled. It keeps
// at most capacity samples; on overrun the oldest are discarded and a
// warning is logged once per overrun, until the next pop.
type sampleQueue struct {
	log zerolog.Logger

	mu       sync.Mutex
	samples  []int16
	capacity int
	dropped  int
	overrun  bool
}

func newSampleQueue(capacity int, log zerolog.Logger) *sampleQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &sampleQueue{capacity: capacity, log: log}
}

func (q *sampleQueue) pushPCM(pcm []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i+1 < len(pcm); i += 2 {
		q.samples = append(q.samples, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	if over := len(q.samples) - q.capacity; over > 0 {
		q.dropped += over
		q.samples = append(q.samples[:0], q.samples[over:]...)
		if !q.overrun {
			q.overrun = true
			q.log.Warn().
				Int("dropped", over).
				Int("capacity", q.capacity).
				Msg("Capture buffer overrun, dropping oldest samples")
		}
	}
}

func (q *sampleQueue) droppedSamples() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *sampleQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}

func (q *sampleQueue) pop(dst []int16) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(dst, q.samples)
	q.samples = append(q.samples[:0], q.samples[n:]...)
	q.overrun = false
	return n
}
