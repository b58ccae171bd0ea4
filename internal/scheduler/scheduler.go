// Package scheduler is the concrete implementation of the Scheduler
// collaborator the registration lifecycle engine (package registration)
// is written against: a fixed contract of immediate jobs, retryable
// jobs with their own backoff policy, and cancellation by handle. It is
// grounded on the reconnect-with-backoff loop in
// internal/worker/hub/client.go (select on ctx.Done()/time.After, backoff
// reset on a successful run) and the concrete backoff construction in
// internal/worker/hub/backoff.go.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Job is the unit of work a Scheduler runs. A non-nil error from a job
// scheduled via Retryable causes the scheduler to redeliver it after the
// backoff policy's next interval; jobs scheduled via Now run exactly
// once regardless of outcome.
type Job func() error

// NewBackOff constructs a fresh backoff.BackOff for a retryable job.
// Scheduler calls this once per job (not once per attempt) so stateful
// policies like ExponentialBackOff accumulate correctly across retries.
type NewBackOff func() backoff.BackOff

// Handle identifies one scheduled job. The zero Handle is not usable
// directly — obtain one from Scheduler.Now/Retryable. Cancel is safe to
// call on a nil *Handle or one whose job already ran.
type Handle struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.cancelled {
		h.cancelled = true
		close(h.done)
	}
}

// Scheduler runs jobs on goroutines, timed with plain channel selects. It
// has no notion of the jobs' domain meaning (SSID, reconnect flags,
// etc.) — it only knows delays, backoff policies, and whether a job
// succeeded.
type Scheduler struct {
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New creates a ready-to-use Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Now schedules job to run on a fresh goroutine immediately, matching
// sched_now's delay-0, no-retry semantics.
func (s *Scheduler) Now(job Job) *Handle {
	return s.schedule(0, job, nil)
}

// Retryable schedules job to run after delay; if job returns a non-nil
// error, the scheduler redelivers it after newBackoff().NextBackOff(),
// repeating until the job succeeds, the handle is cancelled, or the
// backoff policy signals it has given up (a negative NextBackOff — see
// backoff.Stop). The scheduler never invents its own backoff on top of
// the caller's policy; it strictly delegates retry timing to newBackoff.
func (s *Scheduler) Retryable(delay time.Duration, newBackoff NewBackOff, job Job) *Handle {
	return s.schedule(delay, job, newBackoff)
}

func (s *Scheduler) schedule(delay time.Duration, job Job, newBackoff NewBackOff) *Handle {
	h := newHandle()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		h.cancel()
		return h
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		select {
		case <-h.done:
			return
		case <-time.After(delay):
		}

		s.run(h, job, newBackoff)
	}()
	return h
}

func (s *Scheduler) run(h *Handle, job Job, newBackoff NewBackOff) {
	err := job()
	if err == nil {
		return
	}

	if newBackoff == nil {
		// Now()-class job: no retry policy, the error is terminal.
		slog.Warn("job failed, not retryable", "error", err)
		return
	}

	s.retryLoop(h, job, newBackoff())
}

func (s *Scheduler) retryLoop(h *Handle, job Job, bo backoff.BackOff) {
	for {
		interval := bo.NextBackOff()
		if interval < 0 {
			// cenkalti/backoff signals "give up" with a negative
			// duration (backoff.Stop), e.g. from backoff.StopBackOff or
			// a caller-supplied bounded policy.
			slog.Warn("job exhausted retry budget, giving up")
			return
		}

		select {
		case <-h.done:
			return
		case <-time.After(interval):
		}

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		err := job()
		if err == nil {
			return
		}
		slog.Warn("retryable job failed, backing off", "delay", interval, "error", err)
	}
}

// Cancel cancels h; safe to call with a nil handle or one that has
// already fired.
func (s *Scheduler) Cancel(h *Handle) {
	h.cancel()
}

// Close marks the scheduler closed: no further jobs will be newly
// scheduled or retried. It does not wait for in-flight jobs — call Wait
// afterward if that's needed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait blocks until every currently scheduled or in-flight job has
// settled. Intended for tests.
func (s *Scheduler) Wait() {
	s.pending.Wait()
}
