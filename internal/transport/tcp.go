package transport

import (
	"context"
	"fmt"
	"net"
)

type tcpTransport struct {
	addr string
}

// NewTCP returns a loopback TCP transport on addr (host:port).
func NewTCP(addr string) Transport { return &tcpTransport{addr: addr} }

func (t *tcpTransport) Kind() Kind      { return KindTCP }
func (t *tcpTransport) Network() string { return "tcp" }
func (t *tcpTransport) Address() string { return t.addr }

func (t *tcpTransport) Listen() (net.Listener, error) {
	if t.Probe(context.Background()) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, t.addr)
	}
	return net.Listen("tcp", t.addr)
}

func (t *tcpTransport) Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", t.addr)
}

func (t *tcpTransport) Probe(ctx context.Context) bool { return probe(ctx, "tcp", t.addr) }

func (t *tcpTransport) Cleanup() error { return nil }
