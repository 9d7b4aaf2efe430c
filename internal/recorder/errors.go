package recorder

import "errors"

var (
	// ErrCaptureUnavailable means the backend does not support capture.
	ErrCaptureUnavailable = errors.New("audio capture is not available on this system")
	// ErrDeviceBusy means another session holds the exclusivity slot.
	ErrDeviceBusy = errors.New("another capture is already running")
	// ErrDeviceOpenFailed means the backend rejected the device or rate.
	ErrDeviceOpenFailed = errors.New("failed to open capture device")
	// ErrConsumerAborted means Processor.OnStart declined to begin capture.
	ErrConsumerAborted = errors.New("capture aborted by consumer")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)
