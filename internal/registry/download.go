package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"pinktranscriber/pkg/types"
)

// Downloader fetches catalog models into a directory.
type Downloader struct {
	Client *http.Client
	Log    zerolog.Logger
	// ProgressEvery throttles progress log lines.
	ProgressEvery time.Duration
}

// NewDownloader returns a Downloader using http.DefaultClient.
func NewDownloader(log zerolog.Logger) *Downloader {
	return &Downloader{Client: http.DefaultClient, Log: log, ProgressEvery: 2 * time.Second}
}

// Download writes model into destDir, going through a ".download" temp file
// that is renamed on success.
func (d *Downloader) Download(ctx context.Context, model types.Model, destDir string) (string, error) {
	if model.URL == "" {
		return "", fmt.Errorf("model %s has no download url", model.ID)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create models directory: %w", err)
	}
	destPath := filepath.Join(destDir, model.ID)
	tempPath := destPath + ".download"

	d.Log.Info().Str("event", "model_download_start").Str("model", model.ID).Str("url", model.URL).Msg("downloading model")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	total := resp.ContentLength
	if total <= 0 {
		total = model.SizeBytes
	}

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	pw := &progressWriter{w: f, total: total, every: d.ProgressEvery, log: d.Log, model: model.ID, last: time.Now()}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("rename file: %w", err)
	}
	d.Log.Info().Str("event", "model_download_done").Str("model", model.ID).Str("path", destPath).Int64("bytes", pw.n).Msg("download complete")
	return destPath, nil
}

// Ensure resolves id inside dir, downloading it from the catalog when missing
// and download is allowed.
func (d *Downloader) Ensure(ctx context.Context, dir, id string, download bool) (types.Model, error) {
	m, err := Resolve(dir, id)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrModelMissing) || !download {
		return types.Model{}, err
	}
	entry, ok := Lookup(id)
	if !ok {
		return types.Model{}, fmt.Errorf("%w (and %s is not in the download catalog)", err, id)
	}
	if _, err := d.Download(ctx, entry, dir); err != nil {
		return types.Model{}, err
	}
	return Resolve(dir, id)
}

type progressWriter struct {
	w     io.Writer
	n     int64
	total int64
	every time.Duration
	last  time.Time
	log   zerolog.Logger
	model string
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.n += int64(n)
	if p.every > 0 && time.Since(p.last) > p.every {
		pct := 0
		if p.total > 0 {
			pct = int(float64(p.n) / float64(p.total) * 100)
		}
		p.log.Info().Str("event", "model_download_progress").Str("model", p.model).
			Int("percent", pct).Int64("downloaded_mb", p.n>>20).Int64("total_mb", p.total>>20).Msg("downloading")
		p.last = time.Now()
	}
	return n, err
}
