package manager

import "github.com/rs/zerolog"

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Loader builds the engine. Required for Load to succeed.
	Loader Loader
	// Probe detects the accelerator; defaults to DetectAccelerator.
	Probe     AcceleratorProbe
	Publisher EventPublisher
	Logger    *zerolog.Logger
	// Model names the weights file, reported in status only.
	Model string
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:  StateLoading,
		loader: cfg.Loader,
		model:  cfg.Model,
	}
	if cfg.Probe == nil {
		m.probe = DetectAccelerator
	} else {
		m.probe = cfg.Probe
	}
	if cfg.Publisher == nil {
		m.publisher = noopPublisher{}
	} else {
		m.publisher = cfg.Publisher
	}
	if cfg.Logger == nil {
		m.log = zerolog.Nop()
	} else {
		m.log = *cfg.Logger
	}
	return m
}
