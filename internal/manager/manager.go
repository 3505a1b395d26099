package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Manager holds exactly one model for the life of the process.
type Manager struct {
	mu       sync.RWMutex
	state    State
	profile  Profile
	model    string
	err      string
	loadedAt time.Time
	engine   Engine

	loader    Loader
	probe     AcceleratorProbe
	publisher EventPublisher
	log       zerolog.Logger

	loadStarted atomic.Bool
}

// New constructs a Manager around loader with package defaults.
func New(loader Loader) *Manager {
	return NewWithConfig(ManagerConfig{Loader: loader})
}

// Ready reports whether the model accepts transcription requests.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.engine != nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Profile returns the profile the model was loaded with. Zero until READY.
func (m *Manager) Profile() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// Close releases the engine. The lifecycle state is left as is; Transcribe
// reports ErrNotReady once the engine is gone.
func (m *Manager) Close() error {
	m.mu.Lock()
	eng := m.engine
	m.engine = nil
	m.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Close()
}

func (m *Manager) publish(name string, fields map[string]any) {
	m.publisher.Publish(Event{Name: name, Model: m.model, Fields: fields})
}
