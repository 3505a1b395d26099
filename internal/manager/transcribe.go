package manager

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Transcribe runs the engine on one file and returns the recognized text:
// segment texts joined by a single space with outer whitespace trimmed.
// Not safe for concurrent use; callers serialize.
func (m *Manager) Transcribe(ctx context.Context, audioPath string) (string, error) {
	m.mu.RLock()
	eng := m.engine
	ready := m.state == StateReady
	m.mu.RUnlock()
	if !ready || eng == nil {
		return "", ErrNotReady
	}

	fi, err := os.Stat(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound(audioPath)
		}
		return "", ErrEngineFailure(err)
	}
	if fi.IsDir() {
		return "", ErrNotFound(audioPath)
	}

	res, err := eng.Transcribe(ctx, audioPath)
	if err != nil {
		return "", ErrEngineFailure(err)
	}
	m.log.Debug().
		Str("path", audioPath).
		Str("language", res.Language).
		Float32("language_probability", res.LanguageProbability).
		Int("segments", len(res.Segments)).
		Msg("transcribed")
	return joinSegments(res.Segments), nil
}

func joinSegments(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
