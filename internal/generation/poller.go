package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storystudio/internal/domain"
)

// Outcome is the terminal result of one Poll call.
type Outcome int

const (
	OutcomeCompleted Outcome = iota + 1
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Observation is delivered to the progress callback after every successful read.
type Observation struct {
	Status domain.JobStatus
	StepID string
	Label  string
	// Record is the raw row behind this observation.
	Record *domain.StatusRecord
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller reads a job's status on a fixed interval until it is terminal or the
// attempt budget runs out.
type Poller struct {
	Store       domain.JobStore
	Interval    time.Duration
	MaxAttempts int
	// Label translates step identifiers; Translate is used when nil.
	Label func(stepID string) string
	// Sleep defaults to a cancellable timer.
	Sleep SleepFunc
}

// Budget is the longest a Poll call can wait for a terminal status.
func (p *Poller) Budget() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

// Poll performs at most MaxAttempts reads separated by MaxAttempts-1 sleeps.
// onProgress runs synchronously for every read, in read order. A failed read
// ends polling at once with OutcomeFailed and an error wrapping
// domain.ErrStoreUnavailable.
func (p *Poller) Poll(ctx context.Context, jobID string, onProgress func(Observation)) (Outcome, error) {
	label := p.Label
	if label == nil {
		label = Translate
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepTimer
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		rec, err := p.Store.Status(ctx, jobID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OutcomeCancelled, ctxErr
		}
		if err != nil {
			return OutcomeFailed, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}

		if onProgress != nil {
			onProgress(Observation{
				Status: rec.Status,
				StepID: rec.CurrentStep,
				Label:  label(rec.CurrentStep),
				Record: rec,
			})
		}

		switch {
		case rec.Status == domain.JobStatusCompleted:
			return OutcomeCompleted, nil
		case rec.Status.Failed():
			return OutcomeFailed, remoteFailure(rec.ErrorMessage)
		}

		if attempt < p.MaxAttempts {
			if err := sleep(ctx, p.Interval); err != nil {
				return OutcomeCancelled, err
			}
		}
	}
	return OutcomeTimedOut, fmt.Errorf("%w after %s", domain.ErrGenerationTimedOut, p.Budget())
}

func remoteFailure(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ErrGenerationFailed
	}
	return fmt.Errorf("%w: %s", domain.ErrGenerationFailed, message)
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsCancelled reports whether err came from an aborted context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
