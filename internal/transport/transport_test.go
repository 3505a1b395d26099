package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/phayes/freeport"
)

// shortSocketPath keeps unix socket paths under the sun_path limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ptx")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func skipWithoutUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not exercised on windows")
	}
}

func TestSelect(t *testing.T) {
	tr, err := selectFor("linux", "auto", "/tmp/a.sock", "127.0.0.1:1")
	if err != nil || tr.Kind() != KindUnix || tr.Address() != "/tmp/a.sock" {
		t.Fatalf("linux auto: %v %v", tr, err)
	}
	tr, err = selectFor("windows", "", "/tmp/a.sock", "127.0.0.1:1")
	if err != nil || tr.Kind() != KindTCP || tr.Address() != "127.0.0.1:1" {
		t.Fatalf("windows auto: %v %v", tr, err)
	}
	tr, err = selectFor("darwin", "tcp", "/tmp/a.sock", "127.0.0.1:2")
	if err != nil || tr.Kind() != KindTCP {
		t.Fatalf("forced tcp: %v %v", tr, err)
	}
	if _, err := selectFor("linux", "pipe", "", ""); err == nil {
		t.Fatalf("expected unknown transport error")
	}
	if _, err := selectFor("linux", "unix", "", ""); err == nil {
		t.Fatalf("expected missing socket path error")
	}
	if got := String(NewTCP("127.0.0.1:9")); got != "tcp:127.0.0.1:9" {
		t.Fatalf("String=%q", got)
	}
}

func TestUnix_ListenDialCleanup(t *testing.T) {
	skipWithoutUnix(t)
	tr := NewUnix(shortSocketPath(t))
	ln, err := tr.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			_, _ = c.Write([]byte("OK\n"))
			_ = c.Close()
		}
	}()
	c, err := tr.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := c.Read(buf); err != nil || string(buf) != "OK\n" {
		t.Fatalf("read %q err=%v", buf, err)
	}
	_ = c.Close()
	_ = ln.Close()
	if err := tr.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(tr.Address()); !os.IsNotExist(err) {
		t.Fatalf("socket file still present: %v", err)
	}
}

func TestUnix_LiveServerRefused(t *testing.T) {
	skipWithoutUnix(t)
	path := shortSocketPath(t)
	first := NewUnix(path)
	ln, err := first.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	if !first.Probe(context.Background()) {
		t.Fatalf("probe should see the live listener")
	}
	if _, err := NewUnix(path).Listen(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestUnix_StaleSocketRemoved(t *testing.T) {
	skipWithoutUnix(t)
	path := shortSocketPath(t)
	// Leave a socket file behind without a listener.
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = ln.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stale socket missing: %v", err)
	}
	tr := NewUnix(path)
	if tr.Probe(context.Background()) {
		t.Fatalf("stale socket must not probe as live")
	}
	ln2, err := tr.Listen()
	if err != nil {
		t.Fatalf("listen over stale socket: %v", err)
	}
	_ = ln2.Close()
}

func TestUnix_RefusesRegularFile(t *testing.T) {
	skipWithoutUnix(t)
	path := shortSocketPath(t)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewUnix(path).Listen(); err == nil {
		t.Fatalf("expected refusal to replace regular file")
	}
}

func TestTCP_ListenProbeAndConflict(t *testing.T) {
	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("freeport: %v", err)
	}
	tr := NewTCP(fmt.Sprintf("127.0.0.1:%d", port))
	if tr.Probe(context.Background()) {
		t.Fatalf("nothing should listen yet")
	}
	ln, err := tr.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	if _, err := NewTCP(tr.Address()).Listen(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := tr.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
