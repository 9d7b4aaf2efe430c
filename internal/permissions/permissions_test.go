//go:build !darwin

package permissions

import "testing"

func TestEnsureMicrophoneNoop(t *testing.T) {
	if err := EnsureMicrophone(); err != nil {
		t.Fatalf("expected no error off macOS, got %v", err)
	}
}
