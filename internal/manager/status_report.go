package manager

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:    m.state,
		Profile:  m.profile,
		Model:    m.model,
		Err:      m.err,
		LoadedAt: m.loadedAt,
	}
}
