// Package client talks to a running transcription server over its transport.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"pinktranscriber/internal/protocol"
	"pinktranscriber/internal/transport"
)

// HealthTimeout bounds a health probe end to end.
const HealthTimeout = 2 * time.Second

// SupportedFormats lists the audio extensions the client accepts.
var SupportedFormats = map[string]struct{}{
	".aiff": {},
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
}

var (
	ErrServerNotRunning = errors.New("Server not running")
	ErrModelLoading     = errors.New("Model is loading")
	ErrServerTimeout    = errors.New("Server timeout")
)

// RemoteError carries the message of an ERROR frame.
type RemoteError struct{ Message string }

func (e *RemoteError) Error() string { return e.Message }

// ValidationError describes a local file that cannot be submitted.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason + ": " + e.Path }

// FormatList returns the supported extensions, sorted and comma separated.
func FormatList() string {
	out := make([]string, 0, len(SupportedFormats))
	for ext := range SupportedFormats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// ValidateAudioFile checks that path exists, is a regular file and has a
// supported extension. It returns the absolute path.
func ValidateAudioFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ValidationError{Path: abs, Reason: "File not found"}
		}
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", &ValidationError{Path: abs, Reason: "Not a file"}
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if _, ok := SupportedFormats[ext]; !ok {
		return "", &ValidationError{Path: abs, Reason: "Unsupported format " + ext}
	}
	return abs, nil
}

// Client sends one command per connection.
type Client struct {
	Transport transport.Transport
}

// New returns a client for t.
func New(t transport.Transport) *Client { return &Client{Transport: t} }

// Health returns nil when the server is READY, ErrModelLoading while it loads.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()
	resp, err := c.roundTrip(ctx, protocol.CmdHealth)
	if err != nil {
		return err
	}
	if resp.Kind == protocol.KindError {
		return &RemoteError{Message: resp.Payload}
	}
	switch resp.Payload {
	case protocol.HealthOK:
		return nil
	case protocol.HealthLoading:
		return ErrModelLoading
	default:
		return fmt.Errorf("Unexpected response: %s", resp.Payload)
	}
}

// Transcribe validates path locally, then waits for the server's transcript.
// There is no deadline unless ctx carries one.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	abs, err := ValidateAudioFile(path)
	if err != nil {
		return "", err
	}
	resp, err := c.roundTrip(ctx, abs)
	if err != nil {
		return "", err
	}
	if resp.Kind == protocol.KindError {
		return "", &RemoteError{Message: resp.Payload}
	}
	return strings.TrimSpace(resp.Payload), nil
}

func (c *Client) roundTrip(ctx context.Context, line string) (protocol.Response, error) {
	conn, err := c.Transport.Dial(ctx)
	if err != nil {
		return protocol.Response{}, classifyDial(err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := protocol.WriteCommand(conn, line); err != nil {
		return protocol.Response{}, classifyIO(ctx, err)
	}
	raw, err := bufio.NewReader(conn).ReadString(protocol.Terminator)
	if err != nil && raw == "" {
		return protocol.Response{}, classifyIO(ctx, err)
	}
	return protocol.ParseResponse(raw), nil
}

func classifyDial(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) {
		return ErrServerNotRunning
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrServerTimeout
	}
	return fmt.Errorf("Server not responding: %w", err)
}

func classifyIO(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrServerTimeout
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrServerTimeout
	}
	return fmt.Errorf("Server not responding: %w", err)
}
