package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"
)

// Expected reasons for the accelerated profile to be unusable. Only these
// trigger the fallback to the generic profile.
var (
	ErrAcceleratorUnavailable      = errors.New("no supported accelerator detected")
	ErrAcceleratorLibrariesMissing = errors.New("accelerator runtime libraries missing")
)

// IsAcceleratorError reports whether err is one of the expected accelerator failures.
func IsAcceleratorError(err error) bool {
	return errors.Is(err, ErrAcceleratorUnavailable) || errors.Is(err, ErrAcceleratorLibrariesMissing)
}

// Accelerator describes the device the accelerated profile would run on.
type Accelerator struct {
	Device    string
	Name      string
	Libraries []string
}

// AcceleratorProbe reports the usable accelerator or an expected accelerator error.
type AcceleratorProbe func() (Accelerator, error)

// cudaLibraries must all be present for the CUDA build of the engine to load.
var cudaLibraries = []string{"libcudart.so*", "libcublas.so*"}

var (
	gpuNames = listGPUs
	libDirs  = defaultLibDirs
	goos     = runtime.GOOS
	goarch   = runtime.GOARCH
)

// DetectAccelerator probes the host for a usable GPU and its runtime libraries.
func DetectAccelerator() (Accelerator, error) {
	if goos == "darwin" && goarch == "arm64" {
		return Accelerator{Device: "metal", Name: "Apple Silicon"}, nil
	}
	names, err := gpuNames()
	if err != nil {
		return Accelerator{}, fmt.Errorf("%w: %v", ErrAcceleratorUnavailable, err)
	}
	card := ""
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), "nvidia") {
			card = n
			break
		}
	}
	if card == "" {
		return Accelerator{}, ErrAcceleratorUnavailable
	}
	libs, missing := findLibraries(libDirs(), cudaLibraries)
	if len(missing) > 0 {
		return Accelerator{}, fmt.Errorf("%w: %s", ErrAcceleratorLibrariesMissing, strings.Join(missing, ", "))
	}
	return Accelerator{Device: "cuda", Name: card, Libraries: libs}, nil
}

func listGPUs() ([]string, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(info.GraphicsCards))
	for _, c := range info.GraphicsCards {
		out = append(out, c.String())
	}
	return out, nil
}

func defaultLibDirs() []string {
	var dirs []string
	for _, d := range filepath.SplitList(os.Getenv("LD_LIBRARY_PATH")) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	if cp := os.Getenv("CUDA_PATH"); cp != "" {
		dirs = append(dirs, filepath.Join(cp, "lib64"))
	}
	return append(dirs,
		"/usr/local/cuda/lib64",
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib/aarch64-linux-gnu",
		"/usr/lib64",
		"/usr/lib",
		"/usr/lib/wsl/lib",
	)
}

// findLibraries returns the first match for each glob pattern across dirs,
// and the patterns that matched nowhere.
func findLibraries(dirs, patterns []string) (found, missing []string) {
	for _, pat := range patterns {
		hit := ""
		for _, d := range dirs {
			matches, _ := filepath.Glob(filepath.Join(d, pat))
			if len(matches) > 0 {
				hit = matches[0]
				break
			}
		}
		if hit == "" {
			missing = append(missing, strings.TrimSuffix(pat, "*"))
			continue
		}
		found = append(found, hit)
	}
	return found, missing
}
