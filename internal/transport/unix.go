package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

type unixTransport struct {
	path string
}

// NewUnix returns a unix-socket transport bound to path.
func NewUnix(path string) Transport { return &unixTransport{path: path} }

func (u *unixTransport) Kind() Kind      { return KindUnix }
func (u *unixTransport) Network() string { return "unix" }
func (u *unixTransport) Address() string { return u.path }

func (u *unixTransport) Listen() (net.Listener, error) {
	if fi, err := os.Lstat(u.path); err == nil {
		if u.Probe(context.Background()) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, u.path)
		}
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("refusing to replace non-socket file %s", u.path)
		}
		// Nobody answers: leftover from a crashed server.
		if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", u.path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(u.path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

func (u *unixTransport) Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", u.path)
}

func (u *unixTransport) Probe(ctx context.Context) bool { return probe(ctx, "unix", u.path) }

func (u *unixTransport) Cleanup() error {
	if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
