package recorder

import (
	"fmt"
	"time"

	"github.com/petems/micrecorder/internal/audio"
	"github.com/petems/micrecorder/internal/metrics"
)

// maxPollFailures consecutive backend errors end the session
const maxPollFailures = 10

// capture is the body of the capture goroutine. It polls until the
// session is cancelled, the processor asks to stop or the backend keeps
// failing, then drains.
func (r *Recorder) capture(s *session) {
	defer close(s.done)
	defer r.cleanup(s)

	failures := 0
	for {
		select {
		case <-s.quit:
			return
		default:
		}

		ok, err := r.processCapturedSamples(s.handle, false)
		if err != nil {
			failures++
			if failures == 1 {
				r.log.Warn().Err(err).Msg("Failed to poll captured samples")
			}
			if failures >= maxPollFailures {
				r.metrics.SessionFailed(metrics.ReasonDeviceLost)
				r.log.Error().Err(err).Int("failures", failures).Msg("Capture device stopped responding, ending capture")
				return
			}
		} else if failures > 0 {
			r.log.Info().Int("failures", failures).Msg("Capture device recovered")
			failures = 0
		}

		if !ok {
			r.metrics.ConsumerStopped()
			r.log.Debug().Msg("Processor requested capture stop")
			return
		}

		if !s.wait(r.ProcessingInterval()) {
			return
		}
	}
}

// wait sleeps for d and reports false if the session was cancelled first.
func (s *session) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.quit:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.quit:
		return false
	case <-timer.C:
		return true
	}
}

// processCapturedSamples pulls every sample the backend has ready and
// hands them to the processor. It returns the processor's verdict, or
// true when nothing was delivered.
func (r *Recorder) processCapturedSamples(h audio.Handle, drain bool) (bool, error) {
	n, err := h.Available()
	if err != nil {
		return true, fmt.Errorf("query captured samples: %w", err)
	}
	if n <= 0 {
		r.metrics.Poll(0, drain)
		return true, nil
	}

	samples := r.buf.resize(n)
	if err := h.Read(samples); err != nil {
		return true, fmt.Errorf("read %d captured samples: %w", n, err)
	}
	r.metrics.Poll(n, drain)

	return r.proc.OnProcessSamples(samples), nil
}

// cleanup stops the backend, forwards whatever it still buffered, closes
// the device and frees the slot. It runs once per session.
func (r *Recorder) cleanup(s *session) {
	if err := s.handle.Stop(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to stop the audio capture device")
	}

	if _, err := r.processCapturedSamples(s.handle, true); err != nil {
		r.log.Warn().Err(err).Msg("Failed to drain captured samples")
	}

	if err := s.handle.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to close the audio capture device")
	}

	r.slot.Release(r.id)
	r.state.Store(int32(Idle))
	r.metrics.SessionEnded()

	r.log.Info().Msg("Capture stopped")
}
