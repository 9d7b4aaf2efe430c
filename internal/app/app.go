package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petems/micrecorder/internal/audio"
	"github.com/petems/micrecorder/internal/config"
	"github.com/petems/micrecorder/internal/metrics"
	"github.com/petems/micrecorder/internal/recorder"
	"github.com/rs/zerolog"
)

// StatusUpdater is an interface for updating status (e.g., console line)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetError()
}

type Config struct {
	Backend       audio.Backend
	Config        *config.Config
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics // Optional - can be nil
	Slot          *recorder.Slot   // Optional - process-wide slot when nil
	StatusUpdater StatusUpdater    // Optional - can be nil
}

// Device represents an audio input device
type Device struct {
	Name    string
	Default bool
}

type App struct {
	backend audio.Backend
	rec     *recorder.Recorder
	meter   *Meter
	cfg     *config.Config
	log     zerolog.Logger
	status  StatusUpdater

	mu sync.Mutex
}

func New(cfg Config) (*App, error) {
	meter := NewMeter(cfg.Logger)

	rec, err := recorder.New(recorder.Config{
		Backend:   cfg.Backend,
		Processor: meter,
		Slot:      cfg.Slot,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
		Interval:  cfg.Config.Audio.ProcessingInterval,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Config.Audio.ProcessingInterval == 0 {
		rec.SetProcessingInterval(0)
	}

	a := &App{
		backend: cfg.Backend,
		rec:     rec,
		meter:   meter,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
	}

	if id := cfg.Config.Audio.DeviceID; id != "" {
		if err := rec.SetDevice(id); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Start begins recording at the configured sample rate
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked()
}

func (a *App) startLocked() error {
	rate := a.cfg.Audio.SampleRate
	a.meter.SetLimit(a.cfg.Meter.MaxDuration, rate)

	if err := a.rec.Start(rate); err != nil {
		a.log.Error().Err(err).Msg("Failed to start recording")
		a.setStatus(StatusUpdater.SetError)
		return err
	}

	a.log.Info().Str("device", a.rec.Device()).Int("sample_rate", rate).Msg("Recording")
	a.setStatus(StatusUpdater.SetRecording)
	return nil
}

// Stop ends recording and waits for the drain to finish
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *App) stopLocked() {
	a.rec.Stop()
	a.setStatus(StatusUpdater.SetIdle)
}

// Toggle starts recording when idle and stops it otherwise
func (a *App) Toggle() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rec.State() == recorder.Capturing {
		a.stopLocked()
		return nil
	}
	// Reap a session the meter ended before starting again
	a.rec.Stop()
	return a.startLocked()
}

// SetDevice switches the capture device, moving a running recording
func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.rec.SetDevice(id); err != nil {
		a.setStatus(StatusUpdater.SetError)
		return fmt.Errorf("switch to %q: %w", id, err)
	}

	a.cfg.Audio.DeviceID = id
	a.log.Info().Str("device", a.rec.Device()).Msg("Changed audio device")
	return nil
}

func (a *App) IsRecording() bool {
	return a.rec.State() == recorder.Capturing
}

// Done is closed when the current recording stops for any reason
func (a *App) Done() <-chan struct{} {
	return a.meter.Stopped()
}

func (a *App) Stats() Stats {
	return a.meter.Stats()
}

func (a *App) Recorder() *recorder.Recorder {
	return a.rec
}

func (a *App) ListDevices() ([]Device, error) {
	names, err := recorder.AvailableDevices(a.backend)
	if err != nil {
		return nil, err
	}
	def, _ := recorder.DefaultDevice(a.backend)

	devices := make([]Device, 0, len(names))
	for _, name := range names {
		devices = append(devices, Device{Name: name, Default: name == def})
	}
	return devices, nil
}

// Shutdown stops any recording, giving up when ctx ends first
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("shutdown interrupted before capture drained"), ctx.Err())
	}
}

func (a *App) setStatus(update func(StatusUpdater)) {
	if a.status != nil {
		update(a.status)
	}
}
