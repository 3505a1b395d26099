package manager

import (
	"context"
	"time"
)

// Load transitions LOADING to READY or FAILED. It is single-shot: a second
// call returns ErrAlreadyLoaded. The accelerated profile is tried first; an
// expected accelerator error falls back to the generic profile exactly once.
// Any other failure is a ModelLoadFailure.
func (m *Manager) Load(ctx context.Context) error {
	if !m.loadStarted.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}
	start := time.Now()
	m.publish("load_start", nil)
	m.log.Info().Str("model", m.model).Msg("loading model")

	profile, eng, err := m.loadWithFallback(ctx)
	if err != nil {
		err = modelLoadFailureError{err: err}
		m.mu.Lock()
		m.state = StateFailed
		m.err = err.Error()
		m.mu.Unlock()
		m.publish("load_failed", map[string]any{"error": err.Error()})
		m.log.Error().Err(err).Msg("model load failed")
		return err
	}

	m.mu.Lock()
	m.engine = eng
	m.profile = profile
	if n, ok := eng.(interface{ ModelName() string }); ok && n.ModelName() != "" {
		m.model = n.ModelName()
	}
	m.state = StateReady
	m.err = ""
	m.loadedAt = time.Now()
	m.mu.Unlock()
	elapsed := time.Since(start)
	m.publish("load_ready", map[string]any{
		"backend":     string(profile.Backend),
		"precision":   string(profile.Precision),
		"duration_ms": elapsed.Milliseconds(),
	})
	m.log.Info().Str("device", profile.String()).Dur("took", elapsed).Msg("model loaded")
	return nil
}

func (m *Manager) loadWithFallback(ctx context.Context) (Profile, Engine, error) {
	if m.loader == nil {
		return Profile{}, nil, ErrDependencyUnavailable("no engine loader configured")
	}
	acc, err := m.probe()
	if err == nil {
		p := AcceleratedProfile
		if acc.Device != "" {
			p.Device = acc.Device
		}
		eng, lerr := m.loader.Load(ctx, p)
		if lerr == nil {
			return p, eng, nil
		}
		if !IsAcceleratorError(lerr) {
			return Profile{}, nil, lerr
		}
		err = lerr
	} else if !IsAcceleratorError(err) {
		return Profile{}, nil, err
	}

	m.log.Warn().Err(err).Msg("accelerator unavailable, falling back to cpu")
	m.publish("load_fallback", map[string]any{"reason": err.Error()})
	eng, err := m.loader.Load(ctx, GenericProfile)
	if err != nil {
		return Profile{}, nil, err
	}
	return GenericProfile, eng, nil
}
