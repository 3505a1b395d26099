package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeEngine returns canned segments and records calls.
type fakeEngine struct {
	mu       sync.Mutex
	segments []Segment
	err      error
	calls    []string
	closed   bool
}

func (f *fakeEngine) Transcribe(_ context.Context, path string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Segments: f.segments, Language: "en", LanguageProbability: 0.99}, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// recordingLoader returns errs in order per call, then eng.
type recordingLoader struct {
	eng      Engine
	errs     []error
	profiles []Profile
}

func (l *recordingLoader) Load(_ context.Context, p Profile) (Engine, error) {
	l.profiles = append(l.profiles, p)
	i := len(l.profiles) - 1
	if i < len(l.errs) && l.errs[i] != nil {
		return nil, l.errs[i]
	}
	return l.eng, nil
}

func probeOK() (Accelerator, error) { return Accelerator{Device: "cuda", Name: "NVIDIA Test"}, nil }

func probeErr(err error) AcceleratorProbe {
	return func() (Accelerator, error) { return Accelerator{}, err }
}

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}

func readyManager(t *testing.T, eng Engine) *Manager {
	t.Helper()
	m := NewWithConfig(ManagerConfig{Loader: &recordingLoader{eng: eng}, Probe: probeOK})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}
