package app

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stats summarises what a Meter has seen in the current session
type Stats struct {
	Chunks  int64
	Samples int64
	Peak    float64 // last chunk, 0.0 to 1.0
	RMS     float64 // last chunk, 0.0 to 1.0
	MaxPeak float64 // whole session
}

// Duration converts the sample count to time at sampleRate
func (s Stats) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(s.Samples) * time.Second / time.Duration(sampleRate)
}

// Meter is a recorder.Processor that measures signal level and can end
// the session after a fixed amount of audio.
type Meter struct {
	log zerolog.Logger

	mu      sync.Mutex
	stats   Stats
	limit   int64 // samples, 0 = unlimited
	stopped chan struct{}
	closed  bool
}

func NewMeter(log zerolog.Logger) *Meter {
	return &Meter{log: log, stopped: make(chan struct{})}
}

// SetLimit ends future sessions after d of audio at sampleRate.
// Zero d means unlimited.
func (m *Meter) SetLimit(d time.Duration, sampleRate int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = int64(d) * int64(sampleRate) / int64(time.Second)
}

func (m *Meter) OnStart() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats = Stats{}
	if m.closed {
		m.stopped = make(chan struct{})
		m.closed = false
	}
	return true
}

func (m *Meter) OnProcessSamples(samples []int16) bool {
	var peak int32
	var sum float64
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
		sum += float64(s) * float64(s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Chunks++
	m.stats.Samples += int64(len(samples))
	m.stats.Peak = float64(peak) / 32768
	m.stats.RMS = math.Sqrt(sum/float64(len(samples))) / 32768
	if m.stats.Peak > m.stats.MaxPeak {
		m.stats.MaxPeak = m.stats.Peak
	}

	m.log.Debug().
		Int("samples", len(samples)).
		Float64("peak", m.stats.Peak).
		Float64("rms", m.stats.RMS).
		Msg("Chunk")

	if m.limit > 0 && m.stats.Samples >= m.limit {
		m.closeLocked()
		return false
	}
	return true
}

func (m *Meter) OnStop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	m.log.Info().
		Int64("chunks", m.stats.Chunks).
		Int64("samples", m.stats.Samples).
		Float64("max_peak", m.stats.MaxPeak).
		Msg("Meter summary")
}

func (m *Meter) closeLocked() {
	if !m.closed {
		close(m.stopped)
		m.closed = true
	}
}

// Stopped is closed when the current session reaches its limit or stops
func (m *Meter) Stopped() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Meter) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
