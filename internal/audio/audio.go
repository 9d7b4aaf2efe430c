package audio

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Capability names a backend may report for capture support. Some hosts
// only advertise the lower-case spelling, so callers check both.
const (
	ExtCapture       = "ALC_EXT_CAPTURE"
	ExtCaptureLegacy = "ALC_EXT_capture"
)

// Backend kinds accepted by New
const (
	KindPortAudio = "portaudio"
	KindMalgo     = "malgo"
	KindSynth     = "synth"
)

// Backend defines the interface for a capture facility
type Backend interface {
	CaptureDevices() ([]string, error)
	DefaultCaptureDevice() (string, error)
	SupportsExtension(name string) bool
	// OpenCapture opens a mono 16-bit capture handle. An empty name
	// selects the platform default device.
	OpenCapture(name string, sampleRate int) (Handle, error)
	Close() error
}

// Handle is an open capture device
type Handle interface {
	Start() error
	// Available reports how many samples can be read without blocking.
	Available() (int, error)
	// Read fills dst with exactly len(dst) samples.
	Read(dst []int16) error
	Stop() error
	Close() error
}

// New creates the backend registered under kind
func New(kind string, log zerolog.Logger) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", KindPortAudio:
		return NewPortAudio(log)
	case KindMalgo:
		return NewMalgo(log)
	case KindSynth:
		return NewSynth(SynthConfig{}), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %q", kind)
	}
}

// Kinds lists the backend names accepted by New
func Kinds() []string {
	return []string{KindPortAudio, KindMalgo, KindSynth}
}

// ParseDeviceList splits a packed list of NUL-terminated device names,
// ending with an empty name, into an ordered slice.
func ParseDeviceList(raw string) []string {
	var names []string
	for len(raw) > 0 {
		i := strings.IndexByte(raw, 0)
		if i < 0 {
			names = append(names, raw)
			break
		}
		if i == 0 {
			break
		}
		names = append(names, raw[:i])
		raw = raw[i+1:]
	}
	return names
}
