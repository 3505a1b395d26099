// Package transport selects the local channel between clients and the server:
// a filesystem-addressed unix socket, or a loopback TCP pair on hosts without one.
// The line protocol above only needs a bidirectional byte stream.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"
)

// Kind names a transport variant.
type Kind string

const (
	KindUnix Kind = "unix"
	KindTCP  Kind = "tcp"
)

// ProbeTimeout bounds the connect-probe used to detect a live server.
const ProbeTimeout = 500 * time.Millisecond

// ErrAlreadyRunning signals that another server already listens on the address.
var ErrAlreadyRunning = errors.New("server already running")

// Transport is a connectable address plus the operations the server and
// clients need on it.
type Transport interface {
	Kind() Kind
	// Network and Address are the net.Dial arguments.
	Network() string
	Address() string
	// Listen binds the address. Stale leftovers of a crashed server are cleared;
	// a live server yields ErrAlreadyRunning.
	Listen() (net.Listener, error)
	Dial(ctx context.Context) (net.Conn, error)
	// Probe reports whether a server is already listening at the address.
	Probe(ctx context.Context) bool
	// Cleanup removes anything Listen left on the filesystem.
	Cleanup() error
}

// Select picks the transport once at startup. kind is auto, unix or tcp;
// auto resolves to unix except on Windows.
func Select(kind, socketPath, tcpAddr string) (Transport, error) {
	return selectFor(runtime.GOOS, kind, socketPath, tcpAddr)
}

func selectFor(goos, kind, socketPath, tcpAddr string) (Transport, error) {
	switch kind {
	case "", "auto":
		if goos == "windows" {
			return NewTCP(tcpAddr), nil
		}
		return NewUnix(socketPath), nil
	case string(KindUnix):
		if socketPath == "" {
			return nil, fmt.Errorf("unix transport requires a socket path")
		}
		return NewUnix(socketPath), nil
	case string(KindTCP):
		if tcpAddr == "" {
			return nil, fmt.Errorf("tcp transport requires an address")
		}
		return NewTCP(tcpAddr), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// String renders t for logs, e.g. "unix:/tmp/pink-transcriber.sock".
func String(t Transport) string { return string(t.Kind()) + ":" + t.Address() }

func probe(ctx context.Context, network, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
