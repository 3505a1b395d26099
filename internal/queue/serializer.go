// Package queue serializes transcription jobs onto a single worker so at
// most one job uses the engine at any instant, in arrival order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/v2/queues/circularbuffer"
	"github.com/emirpasic/gods/v2/queues/linkedlistqueue"
	"github.com/rs/zerolog"
)

// ErrShuttingDown resolves jobs that were still pending when the serializer closed.
var ErrShuttingDown = errors.New("server shutting down")

// Handler performs one job. It is never called concurrently with itself.
type Handler func(ctx context.Context, path string) (string, error)

// Deliver hands a finished job's outcome to its requester. It runs on the
// worker before the next job starts, so it must not block indefinitely.
type Deliver func(text string, err error)

const defaultHistorySize = 50

// Config tunes a Serializer.
type Config struct {
	Handler Handler
	Logger  *zerolog.Logger
	// HistorySize bounds the recent-jobs ring; 0 uses the default.
	HistorySize int
}

// Serializer is a FIFO queue drained by exactly one worker goroutine.
type Serializer struct {
	mu        sync.Mutex
	pending   *linkedlistqueue.Queue[*Job]
	inService *Job
	history   *circularbuffer.Queue[Record]
	closed    bool
	started   bool
	total     uint64
	failed    uint64

	handler Handler
	log     zerolog.Logger
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New constructs a Serializer. Start must be called before jobs are served.
func New(cfg Config) *Serializer {
	size := cfg.HistorySize
	if size <= 0 {
		size = defaultHistorySize
	}
	s := &Serializer{
		pending: linkedlistqueue.New[*Job](),
		history: circularbuffer.New[Record](size),
		handler: cfg.Handler,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cfg.Logger == nil {
		s.log = zerolog.Nop()
	} else {
		s.log = *cfg.Logger
	}
	return s
}

// Start launches the worker. It returns immediately; calling it twice is a no-op.
func (s *Serializer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(wctx)
}

// Submit enqueues path and returns the job handle. deliver may be nil.
// After Close the job is already resolved with ErrShuttingDown.
func (s *Serializer) Submit(path string, deliver Deliver) *Job {
	j := newJob(path)
	j.deliver = deliver
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.resolve(j, ErrShuttingDown)
		return j
	}
	s.pending.Enqueue(j)
	queueDepth.Set(float64(s.pending.Size()))
	s.mu.Unlock()
	s.log.Debug().Str("job", j.ID).Str("path", path).Msg("job queued")
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return j
}

// Len returns the number of jobs waiting, excluding the one in service.
func (s *Serializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Size()
}

// InService reports whether a job currently holds the engine.
func (s *Serializer) InService() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inService != nil
}

// Closed reports whether Close has been called.
func (s *Serializer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Counts returns completed and failed job totals.
func (s *Serializer) Counts() (total, failed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.failed
}

// Recent returns completed jobs, oldest first.
func (s *Serializer) Recent() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Values()
}

// Close stops accepting jobs, lets the in-service job finish until ctx is
// done, then resolves every pending job with ErrShuttingDown.
func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	close(s.stop)
	s.mu.Unlock()

	if !started {
		s.failPending()
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.cancel()
		<-s.done
		return ctx.Err()
	}
}

func (s *Serializer) run(ctx context.Context) {
	defer close(s.done)
	defer s.failPending()
	for {
		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			j := s.next()
			if j == nil {
				break
			}
			s.serve(ctx, j)
		}
		select {
		case <-s.wake:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Serializer) next() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.pending.Dequeue()
	if !ok {
		return nil
	}
	queueDepth.Set(float64(s.pending.Size()))
	inServiceGauge.Set(1)
	s.inService = j
	return j
}

func (s *Serializer) serve(ctx context.Context, j *Job) {
	j.StartedAt = time.Now()
	text, err := s.call(ctx, j.Path)
	j.settle(text, err)

	s.mu.Lock()
	s.inService = nil
	inServiceGauge.Set(0)
	s.total++
	if err != nil {
		s.failed++
	}
	s.history.Enqueue(recordOf(j))
	s.mu.Unlock()
	s.hand(j)
	close(j.done)
	observe(j)

	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("job", j.ID).
		Str("path", j.Path).
		Dur("waited", j.StartedAt.Sub(j.EnqueuedAt)).
		Dur("took", j.FinishedAt.Sub(j.StartedAt)).
		Msg("job finished")
}

// call runs the handler, converting a panic into a job error so the worker survives.
func (s *Serializer) call(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Transcription failed: panic: %v", r)
		}
	}()
	if s.handler == nil {
		return "", errors.New("no handler configured")
	}
	return s.handler(ctx, path)
}

// hand runs the job's deliver callback, if any, shielding the worker from panics.
func (s *Serializer) hand(j *Job) {
	if j.deliver == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job", j.ID).Msg("deliver panicked")
		}
	}()
	j.deliver(j.text, j.err)
}

// resolve finishes a job that never reached the engine.
func (s *Serializer) resolve(j *Job, err error) {
	j.settle("", err)
	s.hand(j)
	close(j.done)
}

func (s *Serializer) failPending() {
	s.mu.Lock()
	var jobs []*Job
	for {
		j, ok := s.pending.Dequeue()
		if !ok {
			break
		}
		jobs = append(jobs, j)
	}
	queueDepth.Set(0)
	s.mu.Unlock()
	for _, j := range jobs {
		s.resolve(j, ErrShuttingDown)
	}
	if len(jobs) > 0 {
		s.log.Info().Int("jobs", len(jobs)).Msg("resolved pending jobs on shutdown")
	}
}
