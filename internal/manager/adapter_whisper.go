//go:build whisper

package manager

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"pinktranscriber/internal/audio"
	"pinktranscriber/internal/registry"
)

type whisperLoader struct {
	opts WhisperOptions
	log  zerolog.Logger
}

// NewWhisperLoader returns a Loader backed by the whisper.cpp bindings.
func NewWhisperLoader(opts WhisperOptions, log zerolog.Logger) Loader {
	return &whisperLoader{opts: opts.withDefaults(), log: log}
}

func (l *whisperLoader) Load(ctx context.Context, p Profile) (Engine, error) {
	name := modelFor(p, l.opts.Model, l.opts.QuantizedModel)
	dl := l.opts.Downloader
	if dl == nil {
		dl = registry.NewDownloader(l.log)
	}
	mdl, err := dl.Ensure(ctx, l.opts.ModelDir, name, l.opts.AutoDownload)
	if err != nil {
		return nil, err
	}
	l.log.Debug().Str("path", mdl.Path).Str("profile", p.String()).Msg("opening whisper model")
	model, err := whisper.New(mdl.Path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &whisperEngine{model: model, name: mdl.Name, opts: l.opts, log: l.log}, nil
}

type whisperEngine struct {
	model whisper.Model
	name  string
	opts  WhisperOptions
	log   zerolog.Logger
}

func (e *whisperEngine) ModelName() string { return e.name }

func (e *whisperEngine) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	var res Result
	samples, err := audio.Load(ctx, audioPath)
	if err != nil {
		return res, fmt.Errorf("convert audio: %w", err)
	}
	wctx, err := e.model.NewContext()
	if err != nil {
		return res, fmt.Errorf("create whisper context: %w", err)
	}
	if err := wctx.SetLanguage(e.opts.Language); err != nil {
		e.log.Warn().Err(err).Str("language", e.opts.Language).Msg("failed to set language")
	}
	wctx.SetThreads(uint(e.opts.Threads))
	wctx.SetBeamSize(e.opts.BeamSize)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return res, fmt.Errorf("whisper process: %w", err)
	}
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("get segment: %w", err)
		}
		res.Segments = append(res.Segments, Segment{Text: seg.Text, Start: seg.Start, End: seg.End})
	}
	res.Language = wctx.DetectedLanguage()
	return res, nil
}

func (e *whisperEngine) Close() error { return e.model.Close() }
