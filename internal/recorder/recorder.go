package recorder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/petems/micrecorder/internal/audio"
	"github.com/petems/micrecorder/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultProcessingInterval is the poll cadence of a new Recorder
const DefaultProcessingInterval = 100 * time.Millisecond

type State int32

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Config struct {
	Backend   audio.Backend
	Processor Processor
	Slot      *Slot // Optional - DefaultSlot when nil
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics // Optional - can be nil
	Interval  time.Duration    // Optional - DefaultProcessingInterval when zero
}

// Recorder captures mono 16-bit audio from a backend device on a
// background goroutine and forwards it to a Processor.
//
// Start, Stop and SetDevice are meant to be called by a single owner;
// they are serialised internally but block until the capture goroutine
// has finished its drain.
type Recorder struct {
	id      uuid.UUID
	backend audio.Backend
	proc    Processor
	slot    *Slot
	log     zerolog.Logger
	metrics *metrics.Metrics

	// opMu serialises Start, Stop and SetDevice
	opMu    sync.Mutex
	session *session

	mu         sync.RWMutex
	device     string
	sampleRate int

	interval atomic.Int64
	state    atomic.Int32

	buf sampleBuffer
}

type session struct {
	handle audio.Handle
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *session) cancel() {
	s.once.Do(func() { close(s.quit) })
}

// New creates a Recorder targeting the backend's default device
func New(cfg Config) (*Recorder, error) {
	if cfg.Backend == nil {
		return nil, errors.New("recorder: backend is required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("recorder: processor is required")
	}
	if cfg.Slot == nil {
		cfg.Slot = DefaultSlot
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultProcessingInterval
	}

	r := &Recorder{
		id:      uuid.New(),
		backend: cfg.Backend,
		proc:    cfg.Processor,
		slot:    cfg.Slot,
		metrics: cfg.Metrics,
	}
	r.log = cfg.Logger.With().Str("recorder", r.id.String()).Logger()
	r.interval.Store(int64(cfg.Interval))

	device, err := DefaultDevice(cfg.Backend)
	if err != nil {
		r.log.Warn().Err(err).Msg("No default capture device")
	}
	r.device = device

	return r, nil
}

// ID identifies the recorder as a slot owner
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Start opens the configured device at sampleRate and begins capturing.
func (r *Recorder) Start(sampleRate int) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if sampleRate <= 0 {
		r.metrics.SessionFailed(metrics.ReasonInvalidRate)
		r.log.Error().Int("sample_rate", sampleRate).Msg("Failed to start capture: invalid sample rate")
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	if !IsAvailable(r.backend) {
		r.metrics.SessionFailed(metrics.ReasonUnavailable)
		r.log.Error().Msg("Failed to start capture: your system cannot capture audio data")
		return ErrCaptureUnavailable
	}

	if err := r.slot.Claim(r.id); err != nil {
		r.metrics.SessionFailed(metrics.ReasonBusy)
		r.log.Error().Msg("Trying to start audio capture, but another capture is already running")
		return err
	}

	// A session that stopped itself still needs reaping
	r.reap()

	device := r.Device()
	h, err := r.backend.OpenCapture(device, sampleRate)
	if err != nil {
		r.slot.Release(r.id)
		r.metrics.SessionFailed(metrics.ReasonOpenFailed)
		r.log.Error().Err(err).Str("device", device).Msg("Failed to open the audio capture device")
		return fmt.Errorf("%w %q: %w", ErrDeviceOpenFailed, device, err)
	}
	r.slot.Bind(r.id, h)

	r.buf.reset()
	r.mu.Lock()
	r.sampleRate = sampleRate
	r.mu.Unlock()

	if !r.proc.OnStart() {
		r.abandon(h)
		r.metrics.SessionFailed(metrics.ReasonConsumerAborted)
		r.log.Warn().Msg("Capture start declined by processor")
		return ErrConsumerAborted
	}

	return r.launch(h)
}

// Stop ends the current session and waits for its drain to finish, then
// calls OnStop. It does nothing when no session exists.
func (r *Recorder) Stop() {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !r.join() {
		return
	}
	r.proc.OnStop()
}

// SetDevice selects the capture device; an empty name selects the
// platform default. A running session is moved to the new device
// without calling OnStop unless reopening fails.
func (r *Recorder) SetDevice(name string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if name == "" {
		def, err := DefaultDevice(r.backend)
		if err != nil {
			r.log.Warn().Err(err).Msg("No default capture device")
		}
		name = def
	}

	r.mu.Lock()
	r.device = name
	sampleRate := r.sampleRate
	r.mu.Unlock()

	if r.State() != Capturing {
		return nil
	}

	r.join()

	if err := r.slot.Claim(r.id); err != nil {
		r.proc.OnStop()
		r.metrics.SessionFailed(metrics.ReasonBusy)
		r.log.Error().Str("device", name).Msg("Cannot switch capture device: another capture is already running")
		return err
	}

	h, err := r.backend.OpenCapture(name, sampleRate)
	if err != nil {
		r.slot.Release(r.id)
		r.proc.OnStop()
		r.metrics.SessionFailed(metrics.ReasonOpenFailed)
		r.log.Error().Err(err).Str("device", name).Msg("Failed to open the audio capture device")
		return fmt.Errorf("%w %q: %w", ErrDeviceOpenFailed, name, err)
	}
	r.slot.Bind(r.id, h)

	if err := r.launch(h); err != nil {
		r.proc.OnStop()
		return err
	}

	r.log.Info().Str("device", name).Msg("Switched capture device")
	return nil
}

func (r *Recorder) SampleRate() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sampleRate
}

func (r *Recorder) Device() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device
}

func (r *Recorder) State() State {
	return State(r.state.Load())
}

// SetProcessingInterval changes the delay between polls. No lower bound
// is enforced; zero or negative polls continuously.
func (r *Recorder) SetProcessingInterval(d time.Duration) {
	r.interval.Store(int64(d))
}

func (r *Recorder) ProcessingInterval() time.Duration {
	return time.Duration(r.interval.Load())
}

// launch starts backend capture on h and spawns the capture goroutine.
// The caller holds the slot claim.
func (r *Recorder) launch(h audio.Handle) error {
	if err := h.Start(); err != nil {
		r.abandon(h)
		r.metrics.SessionFailed(metrics.ReasonOpenFailed)
		r.log.Error().Err(err).Msg("Failed to start the audio capture device")
		return fmt.Errorf("%w: %w", ErrDeviceOpenFailed, err)
	}

	s := &session{
		handle: h,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.session = s
	r.state.Store(int32(Capturing))
	r.metrics.SessionStarted()

	r.log.Info().
		Str("device", r.Device()).
		Int("sample_rate", r.SampleRate()).
		Dur("interval", r.ProcessingInterval()).
		Msg("Capture started")

	go r.capture(s)
	return nil
}

// abandon closes a handle that never reached the capture goroutine
func (r *Recorder) abandon(h audio.Handle) {
	if err := h.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to close the audio capture device")
	}
	r.slot.Release(r.id)
}

// join cancels the current session and waits for its goroutine to exit.
// It reports whether there was a session.
func (r *Recorder) join() bool {
	s := r.session
	if s == nil {
		return false
	}
	s.cancel()
	<-s.done
	r.session = nil
	return true
}

// reap forgets a session whose goroutine already ended on its own
func (r *Recorder) reap() {
	if s := r.session; s != nil {
		<-s.done
		r.session = nil
	}
}

// IsAvailable reports whether b can capture audio. Both spellings of the
// capture capability are checked since hosts differ in which they report.
func IsAvailable(b audio.Backend) bool {
	return b.SupportsExtension(audio.ExtCapture) || b.SupportsExtension(audio.ExtCaptureLegacy)
}

// AvailableDevices lists the capture device names of b in backend order
func AvailableDevices(b audio.Backend) ([]string, error) {
	return b.CaptureDevices()
}

// DefaultDevice returns the name of the default capture device of b
func DefaultDevice(b audio.Backend) (string, error) {
	return b.DefaultCaptureDevice()
}
