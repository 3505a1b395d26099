package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pinktranscriber/internal/common/fsutil"
	"pinktranscriber/pkg/types"
)

// ErrModelMissing is returned by Resolve when the model file is not on disk.
var ErrModelMissing = errors.New("model file not found")

// LoadDir scans a directory for ggml-*.bin files and builds a registry from filenames.
// ID is the file name; Path is the absolute file path; Name comes from the catalog when known.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, "ggml-") || !strings.HasSuffix(lower, ".bin") {
			continue
		}
		m := types.Model{ID: name, Name: name, Path: filepath.Join(abs, name), Quant: quantOf(name)}
		if known, ok := Lookup(name); ok {
			m.Name = known.Name
		}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve returns the on-disk model named id inside dir.
func Resolve(dir, id string) (types.Model, error) {
	if id == "" {
		return types.Model{}, fmt.Errorf("empty model name")
	}
	p := filepath.Join(dir, id)
	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Model{}, fmt.Errorf("%w: %s", ErrModelMissing, p)
		}
		return types.Model{}, err
	}
	if fi.IsDir() {
		return types.Model{}, fmt.Errorf("model path is a directory: %s", p)
	}
	m := types.Model{ID: id, Name: id, Path: p, Quant: quantOf(id), SizeBytes: fi.Size()}
	if known, ok := Lookup(id); ok {
		m.Name = known.Name
	}
	return m, nil
}
