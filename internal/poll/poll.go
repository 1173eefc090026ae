// Package poll implements the poll-until-ready orchestration used against
// every asynchronous external processor: submit elsewhere, then repeatedly
// check for a terminal artifact with bounded retries.
package poll

import (
	"context"
	"log/slog"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Outcome is the observable state of a job. Payload is set on COMPLETED,
// Reason on FAILED. TIMED_OUT means "unknown, may still complete" and is the
// only state a caller may retry later; FAILED is known-permanent.
type Outcome struct {
	Status  Status
	Payload string
	Reason  string
}

func Pending() Outcome                { return Outcome{Status: StatusPending} }
func Completed(payload string) Outcome { return Outcome{Status: StatusCompleted, Payload: payload} }
func Failed(reason string) Outcome    { return Outcome{Status: StatusFailed, Reason: reason} }

// CheckFunc inspects the external system for a job's result or failure
// artifact. A returned error is a transient upstream read failure and is
// absorbed as PENDING so the loop's own retries cover it.
type CheckFunc func(ctx context.Context, jobID string) (Outcome, error)

// Orchestrator runs bounded polling loops. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	sleep func(ctx context.Context, d time.Duration) error
}

func New() *Orchestrator {
	return &Orchestrator{sleep: sleepCtx}
}

// WithSleeper substitutes the sleep function, letting tests observe backoff
// intervals without waiting.
func (o *Orchestrator) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.sleep = sleep
	return o
}

// Await polls with exponential backoff: before attempt i (0-based) it waits
// baseWait*2^i, then invokes check. It stops immediately on COMPLETED or
// FAILED; exhausting maxRetries yields TIMED_OUT. Context cancellation also
// yields TIMED_OUT — timeouts are a normal outcome here, never an error.
func (o *Orchestrator) Await(ctx context.Context, jobID string, check CheckFunc, maxRetries int, baseWait time.Duration) Outcome {
	wait := baseWait
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := o.sleep(ctx, wait); err != nil {
			slog.WarnContext(ctx, "polling cancelled", "job_id", jobID, "attempt", attempt)
			return Outcome{Status: StatusTimedOut}
		}
		wait *= 2

		outcome, err := check(ctx, jobID)
		if err != nil {
			slog.WarnContext(ctx, "check failed, treating as pending", "job_id", jobID, "attempt", attempt, "error", err)
			continue
		}
		switch outcome.Status {
		case StatusCompleted, StatusFailed:
			return outcome
		}
	}
	slog.InfoContext(ctx, "polling exhausted", "job_id", jobID, "max_retries", maxRetries)
	return Outcome{Status: StatusTimedOut}
}

// AwaitDeadline polls at a fixed interval up to a wall-clock ceiling. Used
// when the external service has a roughly constant processing time.
func (o *Orchestrator) AwaitDeadline(ctx context.Context, jobID string, check CheckFunc, interval, ceiling time.Duration) Outcome {
	var elapsed time.Duration
	for elapsed < ceiling {
		if err := o.sleep(ctx, interval); err != nil {
			slog.WarnContext(ctx, "polling cancelled", "job_id", jobID)
			return Outcome{Status: StatusTimedOut}
		}
		elapsed += interval

		outcome, err := check(ctx, jobID)
		if err != nil {
			slog.WarnContext(ctx, "check failed, treating as pending", "job_id", jobID, "error", err)
			continue
		}
		switch outcome.Status {
		case StatusCompleted, StatusFailed:
			return outcome
		}
	}
	slog.InfoContext(ctx, "polling deadline reached", "job_id", jobID, "ceiling", ceiling)
	return Outcome{Status: StatusTimedOut}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
