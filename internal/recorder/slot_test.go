package recorder

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSlotClaimRelease(t *testing.T) {
	s := NewSlot()
	a, b := uuid.New(), uuid.New()

	if s.Busy() {
		t.Fatal("new slot should be free")
	}
	if err := s.Claim(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Claim(b); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}
	if err := s.Claim(a); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected re-claim by holder to fail, got %v", err)
	}

	if s.Release(b) {
		t.Error("non-holder must not release the slot")
	}
	if owner, held := s.Owner(); !held || owner != a {
		t.Errorf("expected %s to hold the slot", a)
	}

	if !s.Release(a) {
		t.Error("holder should release the slot")
	}
	if s.Busy() {
		t.Error("slot should be free after release")
	}
	if s.Release(a) {
		t.Error("second release should report false")
	}
	if err := s.Claim(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSlotBind(t *testing.T) {
	s := NewSlot()
	a, b := uuid.New(), uuid.New()
	h := &mockHandle{backend: newMockBackend()}

	if s.Bind(a, h) {
		t.Error("bind without claim should fail")
	}

	s.Claim(a)
	if s.Bind(b, h) {
		t.Error("bind by non-holder should fail")
	}
	if !s.Bind(a, h) {
		t.Fatal("bind by holder should succeed")
	}
	if s.Handle() != h {
		t.Error("expected bound handle")
	}

	s.Release(a)
	if s.Handle() != nil {
		t.Error("release should clear the handle")
	}
}

func TestSlotConcurrentClaims(t *testing.T) {
	s := NewSlot()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim(uuid.New()) == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestSampleBufferResize(t *testing.T) {
	var b sampleBuffer

	first := b.resize(4)
	first[0] = 42
	second := b.resize(4)

	if len(second) != 4 || second[0] != 0 {
		t.Fatalf("expected a fresh zeroed slice, got %v", second)
	}
	if &first[0] == &second[0] {
		t.Fatal("expected a new allocation per resize")
	}

	b.reset()
	if b.samples != nil {
		t.Error("reset should clear the buffer")
	}
}
