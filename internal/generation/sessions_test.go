package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storystudio/internal/domain"
)

type submissionSource struct {
	subs     map[string]*domain.Submission
	statuses map[string]domain.JobStatus
	reads    int
}

func (s *submissionSource) Status(ctx context.Context, jobID string) (*domain.StatusRecord, error) {
	st, ok := s.statuses[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.StatusRecord{JobID: jobID, Status: st}, nil
}

func (s *submissionSource) GetSubmission(ctx context.Context, jobID string) (*domain.Submission, error) {
	s.reads++
	if sub, ok := s.subs[jobID]; ok {
		return sub, nil
	}
	return nil, domain.ErrNotFound
}

func newTestSessions(store *scriptedStore, source SubmissionSource, ttl time.Duration) (*Sessions, *recordingTrigger) {
	trigger := &recordingTrigger{}
	deps := ControllerDeps{
		Trigger:   trigger,
		Poller:    &Poller{Store: store, Interval: time.Second, MaxAttempts: 3, Sleep: (&sleepCounter{}).sleep},
		Assembler: &Assembler{Store: store},
		Logger:    zerolog.Nop(),
	}
	return NewSessions(context.Background(), deps, source, ttl, zerolog.Nop()), trigger
}

func TestSessionsRejectDuplicateJob(t *testing.T) {
	store := &scriptedStore{script: []read{{status: domain.JobStatusRunning}}}
	sessions, _ := newTestSessions(store, nil, time.Hour)
	sub := &domain.Submission{JobID: "job-1"}

	c, err := sessions.Start(sub)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := sessions.Start(&domain.Submission{JobID: "job-1"}); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
	waitDone(t, c)
	if got, ok := sessions.Get("job-1"); !ok || got != c {
		t.Fatal("session not retrievable")
	}
}

func TestSessionsObserversSeeEveryController(t *testing.T) {
	store := &scriptedStore{script: []read{{status: domain.JobStatusCompleted}}}
	sessions, _ := newTestSessions(store, nil, time.Hour)
	phases := make(chan domain.Phase, 16)
	sessions.Observe(func(c *Controller) {
		c.OnProgressChange(func(s Snapshot) { phases <- s.Phase })
	})

	c, err := sessions.Start(&domain.Submission{JobID: "job-1"})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	waitDone(t, c)
	if first := <-phases; first != domain.PhaseTriggering {
		t.Fatalf("observer missed the first phase, got %s", first)
	}
}

func TestSessionsRetryInMemory(t *testing.T) {
	store := &scriptedStore{script: []read{
		{status: domain.JobStatusError},
		{status: domain.JobStatusCompleted},
	}}
	source := &submissionSource{}
	sessions, trigger := newTestSessions(store, source, time.Hour)
	sub := &domain.Submission{JobID: "job-1"}

	c, err := sessions.Start(sub)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	waitDone(t, c)

	again, err := sessions.Retry(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	waitDone(t, again)
	if again != c || source.reads != 0 {
		t.Fatalf("expected in-memory retry, source reads=%d", source.reads)
	}
	if fired := trigger.fired(); len(fired) != 2 || fired[1] != sub {
		t.Fatalf("unexpected trigger calls: %v", fired)
	}
}

func TestSessionsRetryAfterEvictionRereadsSubmission(t *testing.T) {
	store := &scriptedStore{script: []read{{status: domain.JobStatusCompleted}}}
	stored := &domain.Submission{JobID: "job-9", StoryText: "stored"}
	source := &submissionSource{
		subs:     map[string]*domain.Submission{"job-9": stored},
		statuses: map[string]domain.JobStatus{"job-9": domain.JobStatusFailed},
	}
	sessions, trigger := newTestSessions(store, source, time.Hour)

	c, err := sessions.Retry(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	waitDone(t, c)
	if source.reads != 1 {
		t.Fatalf("expected submission re-read, got %d reads", source.reads)
	}
	if fired := trigger.fired(); len(fired) != 1 || fired[0] != stored {
		t.Fatalf("unexpected trigger calls: %v", fired)
	}

	if _, err := sessions.Retry(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionsRetryAfterEvictionRequiresStoredFailure(t *testing.T) {
	for _, status := range []domain.JobStatus{
		domain.JobStatusCompleted,
		domain.JobStatusRunning,
		domain.JobStatusQueued,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := &scriptedStore{script: []read{{status: domain.JobStatusCompleted}}}
			source := &submissionSource{
				subs:     map[string]*domain.Submission{"job-9": {JobID: "job-9"}},
				statuses: map[string]domain.JobStatus{"job-9": status},
			}
			sessions, trigger := newTestSessions(store, source, time.Hour)

			if _, err := sessions.Retry(context.Background(), "job-9"); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("Retry error = %v, want ErrInvalidTransition", err)
			}
			if n := len(trigger.fired()); n != 0 {
				t.Fatalf("trigger fired %d times", n)
			}
			if sessions.Len() != 0 || source.reads != 0 {
				t.Fatalf("sessions=%d submission reads=%d", sessions.Len(), source.reads)
			}
		})
	}
}

func TestSessionsEvictTerminalSessions(t *testing.T) {
	store := &scriptedStore{script: []read{{status: domain.JobStatusCompleted}}}
	sessions, _ := newTestSessions(store, nil, 10*time.Millisecond)
	c, err := sessions.Start(&domain.Submission{JobID: "job-1"})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	waitDone(t, c)

	deadline := time.Now().Add(2 * time.Second)
	for sessions.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("terminal session was not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionsCancel(t *testing.T) {
	store := &scriptedStore{script: []read{{status: domain.JobStatusRunning}}}
	sessions, _ := newTestSessions(store, nil, time.Hour)
	c, err := sessions.Start(&domain.Submission{JobID: "job-1"})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !sessions.Cancel("job-1") {
		t.Fatal("expected a session to cancel")
	}
	waitDone(t, c)
	if sessions.Cancel("job-1") {
		t.Fatal("session should be gone")
	}
	if _, ok := sessions.Get("job-1"); ok {
		t.Fatal("cancelled session still registered")
	}
}
