// Package audio turns an audio file on disk into the 16 kHz mono float32
// samples the speech engine consumes.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// SampleRate is the rate expected by the engine.
const SampleRate = 16000

// ErrFFmpegMissing is returned when a file needs conversion but ffmpeg is not on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

// ffmpegBin is overridable in tests.
var ffmpegBin = "ffmpeg"

// IsTargetWav reports whether path is a valid WAV already in the engine's
// format (16 kHz, mono, 16-bit PCM).
func IsTargetWav(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return false
	}
	return dec.BitDepth == 16 && dec.NumChans == 1 && dec.SampleRate == SampleRate
}

// Load returns mono 16 kHz samples for the file at path. Files already in the
// target format are decoded directly; everything else goes through ffmpeg.
func Load(ctx context.Context, path string) ([]float32, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") && IsTargetWav(path) {
		return decodeWav(path)
	}
	dir, err := os.MkdirTemp("", "pink-transcriber-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	converted := filepath.Join(dir, "converted.wav")
	if err := Convert(ctx, path, converted); err != nil {
		return nil, err
	}
	return decodeWav(converted)
}

// Convert writes a 16 kHz mono s16le WAV of src to dst using ffmpeg.
func Convert(ctx context.Context, src, dst string) error {
	bin, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return ErrFFmpegMissing
	}
	args := []string{"-nostdin", "-y", "-i", src, "-ar", "16000", "-ac", "1", "-acodec", "pcm_s16le", "-f", "wav", dst}
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(string(out)))
	}
	return nil
}

func decodeWav(path string) ([]float32, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	dec := wav.NewDecoder(fh)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return buf.AsFloat32Buffer().Data, nil
}

// lastLine keeps ffmpeg error output to its final diagnostic line.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
