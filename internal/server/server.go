// Package server accepts connections on the selected transport and answers
// one line-protocol command per connection.
package server

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"pinktranscriber/internal/manager"
	"pinktranscriber/internal/protocol"
	"pinktranscriber/internal/queue"
	"pinktranscriber/internal/transport"
)

// writeTimeout bounds how long delivering a response may hold the worker lane.
const writeTimeout = 10 * time.Second

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

// Model is the part of the model manager the server needs.
type Model interface {
	State() manager.State
	Snapshot() manager.Snapshot
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Config wires a Server.
type Config struct {
	Transport transport.Transport
	Model     Model
	Logger    *zerolog.Logger
	// ReadTimeout bounds the wait for a command line; 0 disables it.
	ReadTimeout time.Duration
	HistorySize int
}

// Server owns the model, the job serializer and the transport.
type Server struct {
	tr          transport.Transport
	model       Model
	queue       *queue.Serializer
	log         zerolog.Logger
	readTimeout time.Duration
	startTime   time.Time

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	closing atomic.Bool
}

// New constructs a Server. Serve must be called to accept connections.
func New(cfg Config) *Server {
	s := &Server{
		tr:          cfg.Transport,
		model:       cfg.Model,
		readTimeout: cfg.ReadTimeout,
		startTime:   time.Now(),
		conns:       make(map[net.Conn]struct{}),
	}
	if cfg.Logger == nil {
		s.log = zerolog.Nop()
	} else {
		s.log = *cfg.Logger
	}
	s.queue = queue.New(queue.Config{
		Handler:     s.model.Transcribe,
		Logger:      &s.log,
		HistorySize: cfg.HistorySize,
	})
	return s
}

// Serve accepts connections on ln until Shutdown. It always returns a non-nil
// error; after Shutdown that error is ErrServerClosed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.queue.Start(ctx)
	s.log.Info().Str("event", "listening").Str("addr", ln.Addr().String()).Msg("server listening")

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept error")
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		if !s.track(conn) {
			conn.Close()
			continue
		}
		go s.handle(conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	cmd, err := protocol.ReadCommand(conn)
	if err != nil {
		var ne net.Error
		switch {
		case protocol.IsProtocolError(err):
			s.log.Debug().Err(err).Msg("rejected request")
			s.reply(conn, protocol.Failure(err))
		case errors.As(err, &ne) && ne.Timeout():
			s.reply(conn, protocol.Failure(protocol.ErrProtocol("timed out waiting for command")))
		default:
			s.log.Debug().Err(err).Msg("read failed")
		}
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch cmd.Kind {
	case protocol.KindHealth:
		s.reply(conn, s.health())
	case protocol.KindTranscribe:
		s.log.Debug().Str("path", cmd.AudioPath).Msg("transcription requested")
		job := s.queue.Submit(cmd.AudioPath, func(text string, err error) {
			if err != nil {
				s.reply(conn, protocol.Failure(err))
				return
			}
			s.reply(conn, protocol.Success(text))
		})
		// Submitted jobs always run to completion; the wait is not bounded.
		<-job.Done()
	}
}

func (s *Server) health() protocol.Response {
	switch s.model.State() {
	case manager.StateReady:
		return protocol.Health(protocol.HealthOK)
	case manager.StateLoading:
		return protocol.Health(protocol.HealthLoading)
	default:
		return protocol.Failure(errors.New("model failed to load"))
	}
}

func (s *Server) reply(conn net.Conn, resp protocol.Response) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := protocol.WriteResponse(conn, resp); err != nil {
		s.log.Debug().Err(err).Msg("client went away before response")
	}
}

// Shutdown stops accepting, finishes the in-service job, resolves pending
// jobs with a shutdown error and waits for connections until ctx is done.
// The transport endpoint is cleaned up last.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	err := s.queue.Close(ctx)

	// Unblock connections still waiting for their command line.
	s.mu.Lock()
	for c := range s.conns {
		_ = c.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		<-done
		if err == nil {
			err = ctx.Err()
		}
	}

	if s.tr != nil {
		if cerr := s.tr.Cleanup(); cerr != nil && !errors.Is(cerr, os.ErrNotExist) {
			s.log.Warn().Err(cerr).Msg("transport cleanup failed")
		}
	}
	s.log.Info().Str("event", "stopped").Msg("server stopped")
	return err
}
