package scheduler

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Millisecond
	b.MaxInterval = 5 * time.Millisecond
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func TestNow_RunsImmediatelyOnce(t *testing.T) {
	s := New()
	var runs atomic.Int32

	s.Now(func() error {
		runs.Add(1)
		return nil
	})
	s.Wait()

	assert.Equal(t, int32(1), runs.Load())
}

func TestNow_DoesNotRetryOnFailure(t *testing.T) {
	s := New()
	var runs atomic.Int32

	s.Now(func() error {
		runs.Add(1)
		return fmt.Errorf("boom")
	})
	s.Wait()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(1), runs.Load())
}

func TestRetryable_RetriesOnFailureUntilSuccess(t *testing.T) {
	s := New()
	var runs atomic.Int32
	done := make(chan struct{})

	s.Retryable(0, fastBackoff, func() error {
		n := runs.Add(1)
		if n < 3 {
			return fmt.Errorf("attempt %d failed", n)
		}
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retryable job never succeeded")
	}

	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestRetryable_CancelStopsFurtherAttempts(t *testing.T) {
	s := New()
	var runs atomic.Int32

	h := s.Retryable(0, fastBackoff, func() error {
		runs.Add(1)
		return fmt.Errorf("always fails")
	})

	time.Sleep(5 * time.Millisecond)
	s.Cancel(h)
	countAtCancel := runs.Load()

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), countAtCancel+1, "no more than one in-flight attempt after cancel")
}

func TestCancel_NilHandleIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.Cancel(nil) })
}

func TestClose_RejectsNewlyScheduledJobs(t *testing.T) {
	s := New()
	s.Close()

	var runs atomic.Int32
	s.Now(func() error {
		runs.Add(1)
		return nil
	})
	s.Wait()
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, int32(0), runs.Load())
}

func TestRetryable_GivesUpWhenBackoffSignalsStop(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NotNil(t, s)

	boundedBackoff := func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}

	s.Retryable(0, boundedBackoff, func() error {
		runs.Add(1)
		return fmt.Errorf("always fails")
	})

	time.Sleep(50 * time.Millisecond)
	finalCount := runs.Load()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, finalCount, runs.Load(), "no further attempts once the backoff policy gave up")
}
