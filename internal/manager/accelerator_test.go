package manager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func stubHost(t *testing.T, os_, arch string, gpus []string, gpuErr error, dirs []string) {
	t.Helper()
	oldOS, oldArch, oldGPU, oldDirs := goos, goarch, gpuNames, libDirs
	goos, goarch = os_, arch
	gpuNames = func() ([]string, error) { return gpus, gpuErr }
	libDirs = func() []string { return dirs }
	t.Cleanup(func() { goos, goarch, gpuNames, libDirs = oldOS, oldArch, oldGPU, oldDirs })
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectAccelerator_NoGPU(t *testing.T) {
	stubHost(t, "linux", "amd64", []string{"card #0 @0000:00:02.0 -> driver: 'i915' class: 'Display controller' vendor: 'Intel Corporation'"}, nil, nil)
	if _, err := DetectAccelerator(); !errors.Is(err, ErrAcceleratorUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDetectAccelerator_GPUProbeError(t *testing.T) {
	stubHost(t, "linux", "amd64", nil, errors.New("no /sys"), nil)
	_, err := DetectAccelerator()
	if !errors.Is(err, ErrAcceleratorUnavailable) || !IsAcceleratorError(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDetectAccelerator_MissingLibraries(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "libcudart.so.12")
	stubHost(t, "linux", "amd64", []string{"vendor: 'NVIDIA Corporation' product: 'RTX 4090'"}, nil, []string{dir})
	_, err := DetectAccelerator()
	if !errors.Is(err, ErrAcceleratorLibrariesMissing) {
		t.Fatalf("expected libraries missing, got %v", err)
	}
}

func TestDetectAccelerator_CUDA(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	touch(t, a, "libcudart.so.12")
	touch(t, b, "libcublas.so.12")
	stubHost(t, "linux", "amd64", []string{"vendor: 'NVIDIA Corporation' product: 'RTX 4090'"}, nil, []string{a, b})
	acc, err := DetectAccelerator()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if acc.Device != "cuda" || len(acc.Libraries) != 2 {
		t.Fatalf("unexpected accelerator %+v", acc)
	}
}

func TestDetectAccelerator_AppleSilicon(t *testing.T) {
	stubHost(t, "darwin", "arm64", nil, errors.New("unused"), nil)
	acc, err := DetectAccelerator()
	if err != nil || acc.Device != "metal" {
		t.Fatalf("expected metal, got %+v %v", acc, err)
	}
}

func TestModelFor(t *testing.T) {
	if got := modelFor(AcceleratedProfile, "full.bin", "q8.bin"); got != "full.bin" {
		t.Fatalf("got %q", got)
	}
	if got := modelFor(GenericProfile, "full.bin", "q8.bin"); got != "q8.bin" {
		t.Fatalf("got %q", got)
	}
	if got := modelFor(GenericProfile, "full.bin", ""); got != "full.bin" {
		t.Fatalf("got %q", got)
	}
}

func TestWhisperOptionsDefaults(t *testing.T) {
	o := WhisperOptions{}.withDefaults()
	if o.Language != "auto" || o.BeamSize != 5 || o.Threads < 1 {
		t.Fatalf("unexpected defaults %+v", o)
	}
}
