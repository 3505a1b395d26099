// Package singleton makes sure at most one server owns a transport address.
//
// Three checks run before the transport is bound: an exclusive lock file, a
// connect-probe of the address, and an optional scan of running processes.
package singleton

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"pinktranscriber/internal/transport"
)

// ErrAlreadyRunning is shared with the transport package so callers can test
// for a single sentinel.
var ErrAlreadyRunning = transport.ErrAlreadyRunning

// Identifiers are the process names a running server may carry.
var Identifiers = []string{"pink-transcriber", "pink_transcriber", "Pink Transcriber"}

// ProcessLister returns the PIDs of other server processes.
type ProcessLister func(ctx context.Context) ([]int32, error)

// Guard holds the single-instance lock for one transport address.
type Guard struct {
	Transport transport.Transport
	LockPath  string
	// Strict turns a positive process scan into a refusal. When false the scan
	// result is only logged.
	Strict bool
	Log    zerolog.Logger
	// Lister defaults to a gopsutil scan.
	Lister ProcessLister

	lock *flock.Flock
}

// DefaultLockPath derives the lock file location from the transport address.
func DefaultLockPath(t transport.Transport) string {
	if t.Kind() == transport.KindUnix {
		return t.Address() + ".lock"
	}
	port := t.Address()
	if i := strings.LastIndex(port, ":"); i >= 0 {
		port = port[i+1:]
	}
	return filepath.Join(os.TempDir(), "pink-transcriber-"+port+".lock")
}

// Acquire runs the checks and keeps the lock until Release.
func (g *Guard) Acquire(ctx context.Context) error {
	lockPath := g.LockPath
	if lockPath == "" {
		lockPath = DefaultLockPath(g.Transport)
	}
	lk := flock.New(lockPath)
	ok, err := lk.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !ok {
		return fmt.Errorf("%w: lock %s is held by another process", ErrAlreadyRunning, lockPath)
	}
	if g.Transport.Probe(ctx) {
		_ = lk.Unlock()
		return fmt.Errorf("%w: %s answers", ErrAlreadyRunning, transport.String(g.Transport))
	}
	lister := g.Lister
	if lister == nil {
		lister = ScanProcesses
	}
	pids, err := lister(ctx)
	if err != nil {
		g.Log.Debug().Str("event", "singleton_scan_error").Err(err).Msg("process scan failed")
	} else if len(pids) > 0 {
		if g.Strict {
			_ = lk.Unlock()
			return fmt.Errorf("%w: server process(es) %v found", ErrAlreadyRunning, pids)
		}
		g.Log.Warn().Str("event", "singleton_scan_match").Interface("pids", pids).
			Msg("other server processes found but none owns the address")
	}
	g.lock = lk
	g.Log.Debug().Str("event", "singleton_acquired").Str("lock", lockPath).Msg("single-instance lock held")
	return nil
}

// Release drops the lock. Safe to call when Acquire failed.
func (g *Guard) Release() error {
	if g.lock == nil {
		return nil
	}
	err := g.lock.Unlock()
	g.lock = nil
	return err
}

// ScanProcesses lists other processes running "serve" under a server identifier.
func ScanProcesses(ctx context.Context) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	self := int32(os.Getpid())
	var out []int32
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		if IsServerProcess(name, args) {
			out = append(out, p.Pid)
		}
	}
	return out, nil
}

// IsServerProcess reports whether a process name and argv look like a running
// server ("pink-transcriber serve ...").
func IsServerProcess(name string, args []string) bool {
	match := matchesIdentifier(name)
	if !match && len(args) > 0 {
		match = matchesIdentifier(filepath.Base(args[0]))
	}
	if !match {
		return false
	}
	for _, a := range args[min(1, len(args)):] {
		if a == "serve" {
			return true
		}
	}
	return false
}

func matchesIdentifier(s string) bool {
	for _, id := range Identifiers {
		if strings.Contains(s, id) {
			return true
		}
	}
	return false
}
