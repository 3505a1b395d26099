//go:build !whisper

package manager

import (
	"context"

	"github.com/rs/zerolog"
)

type whisperStub struct{}

// NewWhisperLoader returns a loader that always fails because whisper.cpp
// support was not compiled in.
func NewWhisperLoader(WhisperOptions, zerolog.Logger) Loader { return whisperStub{} }

func (whisperStub) Load(context.Context, Profile) (Engine, error) {
	return nil, ErrDependencyUnavailable("whisper support not built (missing 'whisper' build tag)")
}
