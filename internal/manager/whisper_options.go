package manager

import "pinktranscriber/internal/registry"

// WhisperOptions configures the whisper.cpp loader.
type WhisperOptions struct {
	ModelDir       string
	Model          string
	QuantizedModel string
	// AutoDownload fetches missing catalog models into ModelDir.
	AutoDownload bool
	Downloader   *registry.Downloader
	Language     string
	BeamSize     int
	Threads      int
}

func (o WhisperOptions) withDefaults() WhisperOptions {
	if o.Language == "" {
		o.Language = "auto"
	}
	if o.BeamSize <= 0 {
		o.BeamSize = 5
	}
	if o.Threads <= 0 {
		o.Threads = DefaultThreads()
	}
	return o
}
