package recorder

// sampleBuffer holds the most recent chunk pulled from the backend. Only
// the capture goroutine touches it while a session runs.
type sampleBuffer struct {
	samples []int16
}

func (b *sampleBuffer) reset() {
	b.samples = nil
}

// resize replaces the contents with a fresh slice of n samples.
func (b *sampleBuffer) resize(n int) []int16 {
	b.samples = make([]int16, n)
	return b.samples
}
