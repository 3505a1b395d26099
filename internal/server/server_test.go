package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pinktranscriber/internal/manager"
	"pinktranscriber/internal/transport"
)

// fakeModel mimics the manager with a controllable state and transcribe hook.
type fakeModel struct {
	mu    sync.Mutex
	state manager.State
	fn    func(ctx context.Context, path string) (string, error)
}

func (f *fakeModel) State() manager.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeModel) setState(s manager.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeModel) Snapshot() manager.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := manager.Snapshot{State: f.state, Model: "ggml-test.bin"}
	if f.state == manager.StateReady {
		snap.Profile = manager.GenericProfile
	}
	return snap
}

func (f *fakeModel) Transcribe(ctx context.Context, path string) (string, error) {
	if f.State() != manager.StateReady {
		return "", manager.ErrNotReady
	}
	return f.fn(ctx, path)
}

func startServer(t *testing.T, m *fakeModel) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	s := New(Config{Transport: transport.NewTCP(addr), Model: m, ReadTimeout: 2 * time.Second})
	served := make(chan error, 1)
	go func() { served <- s.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		if err := <-served; !errors.Is(err, ErrServerClosed) {
			t.Errorf("serve returned %v", err)
		}
	})
	return s, addr
}

func send(t *testing.T, addr, line string) string {
	t.Helper()
	resp, err := trySend(addr, line)
	if err != nil {
		t.Fatalf("send %q: %v", line, err)
	}
	return resp
}

// trySend is safe to call from goroutines other than the test's.
func trySend(addr, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(line)); err != nil {
		return "", err
	}
	return bufio.NewReader(conn).ReadString('\n')
}

// sendAsync delivers the response, or the error text, on the returned channel.
func sendAsync(addr, line string) <-chan string {
	ch := make(chan string, 1)
	go func() {
		resp, err := trySend(addr, line)
		if err != nil {
			resp = "send error: " + err.Error()
		}
		ch <- resp
	}()
	return ch
}

func TestHealth_LoadingThenReady(t *testing.T) {
	m := &fakeModel{state: manager.StateLoading}
	_, addr := startServer(t, m)

	if got := send(t, addr, "HEALTH\n"); got != "LOADING\n" {
		t.Fatalf("scenario A: got %q", got)
	}
	m.setState(manager.StateReady)
	if got := send(t, addr, "HEALTH\n"); got != "OK\n" {
		t.Fatalf("scenario B: got %q", got)
	}
}

func TestHealth_Failed(t *testing.T) {
	m := &fakeModel{state: manager.StateFailed}
	_, addr := startServer(t, m)
	if got := send(t, addr, "HEALTH\n"); got != "ERROR: model failed to load\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscribe_MissingPath(t *testing.T) {
	m := &fakeModel{state: manager.StateReady, fn: func(_ context.Context, p string) (string, error) {
		if strings.Contains(p, "missing") {
			return "", manager.ErrNotFound(p)
		}
		return "hello world", nil
	}}
	_, addr := startServer(t, m)

	missing := filepath.Join(t.TempDir(), "missing.wav")
	got := send(t, addr, missing+"\n")
	if !strings.HasPrefix(got, "ERROR:") || !strings.Contains(got, missing) {
		t.Fatalf("scenario C: got %q", got)
	}
	// Server keeps serving after an error.
	if got := send(t, addr, "/tmp/ok.wav\n"); got != "hello world\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscribe_NotReady(t *testing.T) {
	m := &fakeModel{state: manager.StateLoading}
	_, addr := startServer(t, m)
	if got := send(t, addr, "/tmp/a.wav\n"); got != "ERROR: Model not loaded\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscribe_MultilineFlattened(t *testing.T) {
	m := &fakeModel{state: manager.StateReady, fn: func(context.Context, string) (string, error) {
		return "line one\nline two\r\nline three", nil
	}}
	_, addr := startServer(t, m)
	if got := send(t, addr, "/tmp/a.wav\n"); got != "line one line two line three\n" {
		t.Fatalf("got %q", got)
	}
}

func TestProtocolErrors(t *testing.T) {
	m := &fakeModel{state: manager.StateReady, fn: func(context.Context, string) (string, error) { return "x", nil }}
	_, addr := startServer(t, m)
	for _, line := range []string{"\n", "relative/path.wav\n", "health\n"} {
		got := send(t, addr, line)
		if !strings.HasPrefix(got, "ERROR: invalid request") {
			t.Fatalf("line %q: got %q", line, got)
		}
	}
}

func TestHealthWhileJobInService(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := &fakeModel{state: manager.StateReady, fn: func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "slow", nil
	}}
	_, addr := startServer(t, m)

	result := sendAsync(addr, "/tmp/slow.wav\n")
	<-started

	begin := time.Now()
	if got := send(t, addr, "HEALTH\n"); got != "OK\n" {
		t.Fatalf("got %q", got)
	}
	if d := time.Since(begin); d > time.Second {
		t.Fatalf("health blocked behind job for %v", d)
	}
	close(release)
	if got := <-result; got != "slow\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFIFOAcrossConnections(t *testing.T) {
	gate := make(chan struct{})
	p1Running := make(chan struct{})
	p1Received := make(chan struct{})
	var p2SawP1 atomic.Bool
	m := &fakeModel{state: manager.StateReady, fn: func(_ context.Context, p string) (string, error) {
		switch p {
		case "/tmp/p1.wav":
			close(p1Running)
			<-gate
		case "/tmp/p2.wav":
			// P1's response must already be on the wire when P2 starts.
			select {
			case <-p1Received:
				p2SawP1.Store(true)
			case <-time.After(2 * time.Second):
			}
		}
		return p, nil
	}}
	s, addr := startServer(t, m)

	r1 := make(chan string, 1)
	go func() {
		got, err := trySend(addr, "/tmp/p1.wav\n")
		if err != nil {
			got = "send error: " + err.Error()
		}
		close(p1Received)
		r1 <- got
	}()
	<-p1Running

	r2 := sendAsync(addr, "/tmp/p2.wav\n")

	deadline := time.Now().Add(2 * time.Second)
	for s.queue.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.queue.Len() != 1 {
		t.Fatalf("expected p2 queued behind p1")
	}
	close(gate)

	if got := <-r1; got != "/tmp/p1.wav\n" {
		t.Fatalf("p1 got %q", got)
	}
	if got := <-r2; got != "/tmp/p2.wav\n" {
		t.Fatalf("p2 got %q", got)
	}
	if !p2SawP1.Load() {
		t.Fatalf("p2 began before p1's response was delivered")
	}
}

func TestStatus(t *testing.T) {
	m := &fakeModel{state: manager.StateReady, fn: func(context.Context, string) (string, error) {
		return "", errors.New("Transcription failed: boom")
	}}
	s, addr := startServer(t, m)
	send(t, addr, "/tmp/a.wav\n")

	st := s.Status()
	if st.State != "READY" || st.Backend != "generic" || st.Precision != "int8" || st.Device != "CPU (INT8)" {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Transport != "tcp" || st.Address != addr {
		t.Fatalf("unexpected transport %s %s", st.Transport, st.Address)
	}
	if st.JobsTotal != 1 || st.JobsFailed != 1 {
		t.Fatalf("unexpected counts %+v", st)
	}
	if !s.Ready() {
		t.Fatalf("expected ready")
	}
	if len(s.Recent()) != 1 {
		t.Fatalf("expected one recent job")
	}
}

func TestShutdownResolvesQueuedJobs(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := &fakeModel{state: manager.StateReady, fn: func(_ context.Context, p string) (string, error) {
		if p == "/tmp/first.wav" {
			close(started)
			<-release
		}
		return "done", nil
	}}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	s := New(Config{Transport: transport.NewTCP(addr), Model: m})
	go s.Serve(context.Background(), ln)

	first := sendAsync(addr, "/tmp/first.wav\n")
	<-started
	second := sendAsync(addr, "/tmp/second.wav\n")
	for s.queue.Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	shut := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shut <- s.Shutdown(ctx)
	}()
	for !s.queue.Closed() {
		time.Sleep(time.Millisecond)
	}
	close(release)

	if got := <-first; got != "done\n" {
		t.Fatalf("in-service job should finish, got %q", got)
	}
	if got := <-second; got != "ERROR: server shutting down\n" {
		t.Fatalf("queued job should be rejected, got %q", got)
	}
	if err := <-shut; err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatalf("expected listener closed")
	}
}
