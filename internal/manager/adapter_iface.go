package manager

import (
	"context"
	"time"
)

// Loader materializes an Engine for a given profile. Concrete implementations
// (e.g., whisper.cpp) should satisfy this interface.
type Loader interface {
	// Load returns ErrAcceleratorUnavailable or ErrAcceleratorLibrariesMissing
	// (possibly wrapped) when the profile cannot run on this host.
	Load(ctx context.Context, p Profile) (Engine, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, p Profile) (Engine, error)

func (f LoaderFunc) Load(ctx context.Context, p Profile) (Engine, error) { return f(ctx, p) }

// Engine is a loaded speech model.
type Engine interface {
	// Transcribe decodes the audio file and returns its segments.
	Transcribe(ctx context.Context, audioPath string) (Result, error)
	// Close releases model memory.
	Close() error
}

// Segment is one piece of recognized text.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Result is the raw engine output for one file.
type Result struct {
	Segments            []Segment
	Language            string
	LanguageProbability float32
}
