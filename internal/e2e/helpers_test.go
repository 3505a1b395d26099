package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pinktranscriber/internal/client"
	"pinktranscriber/internal/httpapi"
	"pinktranscriber/internal/manager"
	"pinktranscriber/internal/server"
	"pinktranscriber/internal/transport"
)

// echoEngine returns the audio file's contents as the transcript.
type echoEngine struct{}

func (echoEngine) Transcribe(_ context.Context, path string) (manager.Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manager.Result{}, err
	}
	if strings.HasPrefix(string(b), "fail:") {
		return manager.Result{}, errors.New(strings.TrimPrefix(string(b), "fail:"))
	}
	return manager.Result{Segments: []manager.Segment{{Text: " " + string(b)}}, Language: "en"}, nil
}

func (echoEngine) Close() error { return nil }

// gatedLoader blocks in Load until release is closed.
func gatedLoader(release <-chan struct{}, errs ...error) manager.Loader {
	calls := 0
	return manager.LoaderFunc(func(ctx context.Context, p manager.Profile) (manager.Engine, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		i := calls
		calls++
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		return echoEngine{}, nil
	})
}

type stack struct {
	mgr    *manager.Manager
	srv    *server.Server
	client *client.Client
	http   *httptest.Server
	events *manager.MemoryPublisher
}

// startStack runs a manager, the socket server and the HTTP status API
// on a fresh unix socket. Load starts immediately in the background.
func startStack(t *testing.T, cfg manager.ManagerConfig) *stack {
	t.Helper()
	dir, err := os.MkdirTemp("", "pt-e2e")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	pub := manager.NewMemoryPublisher()
	cfg.Publisher = pub
	mgr := manager.NewWithConfig(cfg)
	t.Cleanup(func() { _ = mgr.Close() })

	tr := transport.NewUnix(filepath.Join(dir, "pt.sock"))
	ln, err := tr.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := server.New(server.Config{Transport: tr, Model: mgr, ReadTimeout: 5 * time.Second})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		if err := <-done; !errors.Is(err, server.ErrServerClosed) {
			t.Errorf("serve: %v", err)
		}
	})

	hs := httptest.NewServer(httpapi.NewMux(srv))
	t.Cleanup(hs.Close)

	go func() { _ = mgr.Load(context.Background()) }()
	return &stack{mgr: mgr, srv: srv, client: client.New(tr), http: hs, events: pub}
}

// rawLine sends one command line over the server's transport and returns the
// reply frame verbatim.
func (s *stack) rawLine(t *testing.T, line string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := s.srv.Transport().Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

// waitState polls until the manager reaches want.
func waitState(t *testing.T, m *manager.Manager, want manager.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for m.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state %s, want %s", m.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func writeAudio(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
