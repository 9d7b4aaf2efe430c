package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons used as the "reason" label
const (
	ReasonUnavailable     = "unavailable"
	ReasonBusy            = "busy"
	ReasonOpenFailed      = "open_failed"
	ReasonConsumerAborted = "consumer_aborted"
	ReasonInvalidRate     = "invalid_rate"
	ReasonDeviceLost      = "device_lost"
)

// Metrics contains the Prometheus collectors for capture sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionFailures *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge

	// Capture loop metrics
	Polls           prometheus.Counter
	SamplesCaptured prometheus.Counter
	ChunkSamples    prometheus.Histogram
	DrainedSamples  prometheus.Counter
	ConsumerStops   prometheus.Counter
}

// New creates and registers all metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "micrecorder_sessions_started_total",
			Help: "Total number of capture sessions started",
		}),
		SessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "micrecorder_session_failures_total",
			Help: "Total number of failed session starts, device switches and lost devices",
		}, []string{"reason"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micrecorder_active_sessions",
			Help: "Current number of running capture sessions",
		}),

		Polls: factory.NewCounter(prometheus.CounterOpts{
			Name: "micrecorder_polls_total",
			Help: "Total number of backend polls for available samples",
		}),
		SamplesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "micrecorder_samples_captured_total",
			Help: "Total number of samples forwarded to the consumer",
		}),
		ChunkSamples: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "micrecorder_chunk_samples",
			Help:    "Number of samples per forwarded chunk",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12), // 64 to ~131k
		}),
		DrainedSamples: factory.NewCounter(prometheus.CounterOpts{
			Name: "micrecorder_drained_samples_total",
			Help: "Total number of samples recovered by the terminal drain pass",
		}),
		ConsumerStops: factory.NewCounter(prometheus.CounterOpts{
			Name: "micrecorder_consumer_stops_total",
			Help: "Total number of sessions stopped by the consumer hook",
		}),
	}
}

// SessionStarted records a session entering the capturing state
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

// SessionEnded records a session finishing its drain
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// SessionFailed records a failed start or device switch
func (m *Metrics) SessionFailed(reason string) {
	if m == nil {
		return
	}
	m.SessionFailures.WithLabelValues(reason).Inc()
}

// Poll records one backend poll that delivered n samples
func (m *Metrics) Poll(n int, drain bool) {
	if m == nil {
		return
	}
	m.Polls.Inc()
	if n <= 0 {
		return
	}
	m.SamplesCaptured.Add(float64(n))
	m.ChunkSamples.Observe(float64(n))
	if drain {
		m.DrainedSamples.Add(float64(n))
	}
}

// ConsumerStopped records the consumer hook requesting a stop
func (m *Metrics) ConsumerStopped() {
	if m == nil {
		return
	}
	m.ConsumerStops.Inc()
}
