package audio

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseDeviceList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: nil},
		{name: "terminator only", raw: "\x00", expected: nil},
		{name: "single", raw: "Built-in Mic\x00\x00", expected: []string{"Built-in Mic"}},
		{name: "ordered", raw: "A\x00B\x00C\x00\x00", expected: []string{"A", "B", "C"}},
		{name: "stops at empty name", raw: "A\x00\x00B\x00\x00", expected: []string{"A"}},
		{name: "missing terminator", raw: "A\x00B", expected: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDeviceList(tt.raw)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Fatalf("element %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("carrier-pigeon", zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewSynthBackend(t *testing.T) {
	b, err := New(KindSynth, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.SupportsExtension(ExtCapture) {
		t.Error("synth backend should report capture support")
	}
	if b.SupportsExtension(ExtCaptureLegacy) {
		t.Error("synth backend should only report the canonical spelling")
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSynthDevices(t *testing.T) {
	s := NewSynth(SynthConfig{})

	devices, err := s.CaptureDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 || devices[0] != "Synth Tone" || devices[1] != "Synth Silence" {
		t.Fatalf("unexpected devices: %v", devices)
	}

	def, err := s.DefaultCaptureDevice()
	if err != nil || def != "Synth Tone" {
		t.Fatalf("expected default Synth Tone, got %q (%v)", def, err)
	}

	if _, err := s.OpenCapture("Nope", 8000); err == nil {
		t.Error("expected error opening unknown device")
	}
}

func TestSynthPacing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := NewSynth(SynthConfig{Now: clock.Now})

	h, err := s.OpenCapture("", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(100 * time.Millisecond)
	n, _ := h.Available()
	if n != 100 {
		t.Fatalf("expected 100 samples after 100ms at 1kHz, got %d", n)
	}

	buf := make([]int16, n)
	if err := h.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nonZero := false
	for _, v := range buf {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("expected tone device to produce non-zero samples")
	}

	if n, _ := h.Available(); n != 0 {
		t.Fatalf("expected 0 samples after read, got %d", n)
	}

	// Backlog is capped at one second
	clock.Advance(5 * time.Second)
	if n, _ := h.Available(); n != 1000 {
		t.Fatalf("expected backlog capped at 1000, got %d", n)
	}

	if err := h.Read(make([]int16, 1001)); err == nil {
		t.Error("expected short read error")
	}
}

func TestSynthDrainAfterStop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := NewSynth(SynthConfig{Now: clock.Now})

	h, _ := s.OpenCapture("Synth Silence", 1000)
	h.Start()
	clock.Advance(50 * time.Millisecond)

	if err := h.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(time.Second)

	n, _ := h.Available()
	if n != 50 {
		t.Fatalf("expected 50 samples frozen at stop, got %d", n)
	}
	buf := make([]int16, n)
	if err := h.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected silence, sample %d = %d", i, v)
		}
	}
	if n, _ := h.Available(); n != 0 {
		t.Fatalf("expected drained handle, got %d", n)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Start(); err == nil {
		t.Error("expected error starting a closed handle")
	}
}

func pcm(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

func TestSampleQueue(t *testing.T) {
	q := newSampleQueue(4, zerolog.Nop())

	q.pushPCM(pcm(1, 2, 3))
	if q.len() != 3 {
		t.Fatalf("expected 3 queued samples, got %d", q.len())
	}

	// Overrun drops the oldest samples
	q.pushPCM(pcm(4, 5, -6))
	if q.len() != 4 || q.dropped != 2 {
		t.Fatalf("expected 4 queued and 2 dropped, got %d and %d", q.len(), q.dropped)
	}

	dst := make([]int16, 3)
	if n := q.pop(dst); n != 3 {
		t.Fatalf("expected to pop 3, got %d", n)
	}
	expected := []int16{3, 4, 5}
	for i := range expected {
		if dst[i] != expected[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, expected[i], dst[i])
		}
	}

	rest := make([]int16, 2)
	if n := q.pop(rest); n != 1 || rest[0] != -6 {
		t.Fatalf("expected single trailing sample -6, got n=%d %v", n, rest)
	}
}

func TestSampleQueueOverrunLogged(t *testing.T) {
	var buf bytes.Buffer
	q := newSampleQueue(4, zerolog.New(&buf))

	q.pushPCM(pcm(1, 2, 3))
	if buf.Len() != 0 {
		t.Fatalf("expected no warning below capacity, got %q", buf.String())
	}

	// One warning per overrun until the consumer catches up
	q.pushPCM(pcm(4, 5))
	q.pushPCM(pcm(6))
	if got := strings.Count(buf.String(), "overrun"); got != 1 {
		t.Fatalf("expected 1 overrun warning, got %d: %q", got, buf.String())
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", buf.String())
	}
	if q.droppedSamples() != 2 {
		t.Errorf("expected 2 dropped samples, got %d", q.droppedSamples())
	}

	q.pop(make([]int16, 4))
	q.pushPCM(pcm(1, 2, 3, 4, 5))
	if got := strings.Count(buf.String(), "overrun"); got != 2 {
		t.Errorf("expected a new warning after the queue drained, got %d", got)
	}
	if q.droppedSamples() != 3 {
		t.Errorf("expected 3 dropped samples, got %d", q.droppedSamples())
	}
}
