//go:build !whisper

package manager

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestWhisperStubIsFatal(t *testing.T) {
	m := NewWithConfig(ManagerConfig{
		Loader: NewWhisperLoader(WhisperOptions{}, zerolog.Nop()),
		Probe:  probeErr(ErrAcceleratorUnavailable),
	})
	err := m.Load(context.Background())
	if !IsModelLoadFailure(err) || !IsDependencyUnavailable(err) {
		t.Fatalf("expected fatal dependency error, got %v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", m.State())
	}
}
