package recorder

import (
	"sync"

	"github.com/google/uuid"
	"github.com/petems/micrecorder/internal/audio"
)

// DefaultSlot is the process-wide slot used by recorders that are not
// given one explicitly.
var DefaultSlot = NewSlot()

// Slot grants capture to at most one owner at a time.
type Slot struct {
	mu     sync.Mutex
	owner  uuid.UUID
	held   bool
	handle audio.Handle
}

// NewSlot creates an unoccupied slot
func NewSlot() *Slot {
	return &Slot{}
}

// Claim reserves the slot for owner. It fails with ErrDeviceBusy when the
// slot is held, including by owner itself.
func (s *Slot) Claim(owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held {
		return ErrDeviceBusy
	}
	s.owner = owner
	s.held = true
	s.handle = nil
	return nil
}

// Bind attaches the opened handle to the owner's claim
func (s *Slot) Bind(owner uuid.UUID, h audio.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held || s.owner != owner {
		return false
	}
	s.handle = h
	return true
}

// Release frees the slot if owner holds it
func (s *Slot) Release(owner uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held || s.owner != owner {
		return false
	}
	s.owner = uuid.Nil
	s.held = false
	s.handle = nil
	return true
}

// Owner returns the current holder
func (s *Slot) Owner() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.held
}

func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// Handle returns the handle bound to the current claim, if any
func (s *Slot) Handle() audio.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}
