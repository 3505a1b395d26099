package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName names per-user data directories.
const AppName = "pink-transcriber"

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsWritableDir creates dir if needed and verifies a file can be created in it.
func IsWritableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}

// UserDataDir returns the per-user model directory:
// %LOCALAPPDATA%\pink-transcriber\models on Windows,
// ~/.local/share/pink-transcriber/models elsewhere.
func UserDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("home dir: %w", err)
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, AppName, "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", AppName, "models"), nil
}

// ExecutableModelsDir returns <dir of the running binary>/models.
func ExecutableModelsDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "models"), nil
}

// ResolveModelCacheDir picks the model cache directory, in order:
// the explicit override, a writable package-local dir, the per-user data dir.
// The chosen directory exists on return.
func ResolveModelCacheDir(override, localDir string) (string, error) {
	if override != "" {
		dir, err := ExpandHome(override)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create model dir %s: %w", dir, err)
		}
		return dir, nil
	}
	if localDir != "" && IsWritableDir(localDir) {
		return localDir, nil
	}
	dir, err := UserDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir %s: %w", dir, err)
	}
	return dir, nil
}
