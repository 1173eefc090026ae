package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleeper(waits *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestAwait_CompletesAfterPendingChecks(t *testing.T) {
	var waits []time.Duration
	o := New().WithSleeper(recordingSleeper(&waits))

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		if calls < 3 {
			return Pending(), nil
		}
		return Completed("the result"), nil
	}

	outcome := o.Await(context.Background(), "job-1", check, 5, time.Second)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Equal(t, "the result", outcome.Payload)
	assert.Equal(t, 3, calls)
	// Exponential backoff: 1s, 2s, 4s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, waits)
}

func TestAwait_NeverReadyTimesOut(t *testing.T) {
	var waits []time.Duration
	o := New().WithSleeper(recordingSleeper(&waits))

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		return Pending(), nil
	}

	outcome := o.Await(context.Background(), "job-1", check, 5, time.Second)

	assert.Equal(t, StatusTimedOut, outcome.Status)
	assert.Equal(t, 5, calls)
	require.Len(t, waits, 5)
	assert.Equal(t, 16*time.Second, waits[4])
}

func TestAwait_FailureStopsImmediately(t *testing.T) {
	o := New().WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		return Failed("processor crashed"), nil
	}

	outcome := o.Await(context.Background(), "job-1", check, 5, time.Second)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "processor crashed", outcome.Reason)
	assert.Equal(t, 1, calls)
}

func TestAwait_CheckErrorTreatedAsPending(t *testing.T) {
	o := New().WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		if calls == 1 {
			return Outcome{}, errors.New("store unreachable")
		}
		return Completed("ok"), nil
	}

	outcome := o.Await(context.Background(), "job-1", check, 5, time.Second)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Equal(t, 2, calls)
}

func TestAwait_ContextCancelled(t *testing.T) {
	o := New() // real sleeper, cancelled before the first wait elapses

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	check := func(ctx context.Context, jobID string) (Outcome, error) {
		t.Fatal("check should not run after cancellation")
		return Outcome{}, nil
	}

	outcome := o.Await(ctx, "job-1", check, 5, time.Hour)
	assert.Equal(t, StatusTimedOut, outcome.Status)
}

func TestAwaitDeadline_FixedInterval(t *testing.T) {
	var waits []time.Duration
	o := New().WithSleeper(recordingSleeper(&waits))

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		if calls < 4 {
			return Pending(), nil
		}
		return Completed("transcript"), nil
	}

	outcome := o.AwaitDeadline(context.Background(), "job-1", check, 10*time.Second, 120*time.Second)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Equal(t, "transcript", outcome.Payload)
	for _, w := range waits {
		assert.Equal(t, 10*time.Second, w)
	}
}

func TestAwaitDeadline_CeilingReached(t *testing.T) {
	o := New().WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })

	calls := 0
	check := func(ctx context.Context, jobID string) (Outcome, error) {
		calls++
		return Pending(), nil
	}

	outcome := o.AwaitDeadline(context.Background(), "job-1", check, 10*time.Second, 120*time.Second)

	assert.Equal(t, StatusTimedOut, outcome.Status)
	assert.Equal(t, 12, calls)
}
