package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one transcription request waiting for, or holding, the engine.
// The submitter waits on Done and reads Result once it is closed.
type Job struct {
	ID         string
	Path       string
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	done    chan struct{}
	deliver Deliver
	text    string
	err     error
}

func newJob(path string) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Path:       path,
		EnqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
}

// Done is closed once the job has a result.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the outcome. Only valid after Done is closed.
func (j *Job) Result() (string, error) { return j.text, j.err }

// Wait blocks until the job completes or ctx is done. A canceled wait does
// not remove the job from the queue.
func (j *Job) Wait(ctx context.Context) (string, error) {
	select {
	case <-j.done:
		return j.text, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// settle records the outcome without waking waiters.
func (j *Job) settle(text string, err error) {
	j.FinishedAt = time.Now()
	j.text, j.err = text, err
}

// Record is a completed job kept in the recent-jobs history.
type Record struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Enqueued time.Time `json:"enqueued_at"`
	Waited   float64   `json:"waited_seconds"`
	Took     float64   `json:"took_seconds"`
	Chars    int       `json:"chars"`
	Error    string    `json:"error,omitempty"`
}

func recordOf(j *Job) Record {
	r := Record{
		ID:       j.ID,
		Path:     j.Path,
		Enqueued: j.EnqueuedAt,
		Chars:    len(j.text),
	}
	if !j.StartedAt.IsZero() {
		r.Waited = j.StartedAt.Sub(j.EnqueuedAt).Seconds()
		r.Took = j.FinishedAt.Sub(j.StartedAt).Seconds()
	}
	if j.err != nil {
		r.Error = j.err.Error()
	}
	return r
}
