package app

import (
	"fmt"
	"io"
	"sync"
)

// ConsoleStatus prints status changes as a single line per change
type ConsoleStatus struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func NewConsoleStatus(w io.Writer) *ConsoleStatus {
	return &ConsoleStatus{w: w}
}

func (c *ConsoleStatus) SetIdle() {
	c.updateStatus("idle")
}

func (c *ConsoleStatus) SetRecording() {
	c.updateStatus("recording")
}

func (c *ConsoleStatus) SetError() {
	c.updateStatus("error")
}

// updateStatus writes the microphone emoji and status indicator,
// skipping repeats
func (c *ConsoleStatus) updateStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status == c.last {
		return
	}
	c.last = status
	fmt.Fprintf(c.w, "🎤 %s %s\n", emojiForStatus(status), status)
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - recording
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}
