// Package protocol implements the newline-delimited request/response framing
// spoken between clients and the resident transcription server.
//
// A connection carries exactly one request line and exactly one response line:
//
//	HEALTH\n            -> OK\n | LOADING\n
//	/abs/path.wav\n     -> <transcript>\n | ERROR: <message>\n
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Wire tokens.
const (
	CmdHealth     = "HEALTH"
	HealthOK      = "OK"
	HealthLoading = "LOADING"
	ErrorPrefix   = "ERROR:"
	Terminator    = '\n'
)

// MaxLineBytes bounds a single request line, terminator included.
const MaxLineBytes = 64 << 10

// CommandKind distinguishes the two request shapes.
type CommandKind int

const (
	KindHealth CommandKind = iota + 1
	KindTranscribe
)

// Command is a parsed request line.
type Command struct {
	Kind      CommandKind
	AudioPath string
}

// ResponseKind distinguishes success from error frames.
type ResponseKind int

const (
	KindSuccess ResponseKind = iota
	KindError
)

// Response is a single reply frame.
type Response struct {
	Kind    ResponseKind
	Payload string
}

// Success builds a transcript response.
func Success(text string) Response { return Response{Kind: KindSuccess, Payload: text} }

// Failure builds an error response from err.
func Failure(err error) Response {
	if err == nil {
		return Response{Kind: KindError, Payload: "unknown error"}
	}
	return Response{Kind: KindError, Payload: err.Error()}
}

// Health builds the raw health token response.
func Health(token string) Response { return Response{Kind: KindSuccess, Payload: token} }

// protocolError is returned for empty, oversized or otherwise malformed request lines.
type protocolError struct{ msg string }

func (e protocolError) Error() string { return "invalid request: " + e.msg }

// ErrProtocol constructs a protocolError.
func ErrProtocol(msg string) error { return protocolError{msg: msg} }

// IsProtocolError reports whether err indicates a malformed request.
func IsProtocolError(err error) bool {
	var pe protocolError
	return errors.As(err, &pe)
}

// ReadCommand reads one request line from r and classifies it.
//
// Transcription requests must carry an absolute path; this keeps the HEALTH
// keyword disjoint from anything a client may legitimately submit.
func ReadCommand(r io.Reader) (Command, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 4096)
	}
	line, err := readLine(br)
	if err != nil {
		return Command{}, err
	}
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrProtocol("empty command")
	}
	if line == CmdHealth {
		return Command{Kind: KindHealth}, nil
	}
	if !filepath.IsAbs(line) {
		return Command{}, ErrProtocol(fmt.Sprintf("expected absolute audio path, got %q", line))
	}
	return Command{Kind: KindTranscribe, AudioPath: line}, nil
}

func readLine(br *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		chunk, err := br.ReadSlice(Terminator)
		if b.Len()+len(chunk) > MaxLineBytes {
			return "", ErrProtocol("command line too long")
		}
		b.Write(chunk)
		switch {
		case err == nil:
			s := b.String()
			return s[:len(s)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			// A client that half-closes without a terminator still sent a command.
			if b.Len() == 0 {
				return "", ErrProtocol("connection closed before command")
			}
			return b.String(), nil
		default:
			return "", err
		}
	}
}

// Encode renders resp as a single terminated frame.
func Encode(resp Response) []byte {
	var s string
	if resp.Kind == KindError {
		s = ErrorPrefix + " " + Flatten(resp.Payload)
	} else {
		s = Flatten(resp.Payload)
	}
	return append([]byte(s), Terminator)
}

// WriteResponse writes one framed response to w.
func WriteResponse(w io.Writer, resp Response) error {
	_, err := w.Write(Encode(resp))
	return err
}

// WriteCommand writes one request line to w. Used by clients.
func WriteCommand(w io.Writer, cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return ErrProtocol("command contains a line break")
	}
	_, err := io.WriteString(w, cmd+string(Terminator))
	return err
}

var lineBreaks = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\v", " ",
	"\f", " ",
	"\u0085", " ",
	"\u2028", " ",
	"\u2029", " ",
)

// Flatten replaces every line break in s with a single space so the text fits
// in one frame. Other spacing is kept; "\r\n" counts as one break.
func Flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n\v\f\u0085\u2028\u2029") {
		return s
	}
	return lineBreaks.Replace(s)
}

// ParseResponse decodes a response line as read by a client (terminator
// optional).
func ParseResponse(line string) Response {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, ErrorPrefix) {
		return Response{Kind: KindError, Payload: strings.TrimSpace(strings.TrimPrefix(line, ErrorPrefix))}
	}
	return Response{Kind: KindSuccess, Payload: line}
}
