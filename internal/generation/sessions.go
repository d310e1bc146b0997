package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storystudio/internal/domain"
)

// SubmissionSource re-reads recorded submissions and their stored status.
type SubmissionSource interface {
	GetSubmission(ctx context.Context, jobID string) (*domain.Submission, error)
	Status(ctx context.Context, jobID string) (*domain.StatusRecord, error)
}

// Sessions keeps at most one Controller per job id. Sessions outlive the
// request that started them and are dropped TTL after reaching a terminal phase.
type Sessions struct {
	root    context.Context
	deps    ControllerDeps
	source  SubmissionSource
	ttl     time.Duration
	logger  zerolog.Logger
	observe []func(*Controller)

	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewSessions creates a registry whose attempts run under root.
func NewSessions(root context.Context, deps ControllerDeps, source SubmissionSource, ttl time.Duration, logger zerolog.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{
		root:     root,
		deps:     deps,
		source:   source,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Controller),
	}
}

// Observe registers fn to be called with every new controller before it starts.
// It is meant to be called during setup.
func (s *Sessions) Observe(fn func(*Controller)) {
	s.observe = append(s.observe, fn)
}

// Start opens a session for sub. A job id that already has a session yields
// domain.ErrDuplicateOperation.
func (s *Sessions) Start(sub *domain.Submission) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sub.JobID]; ok {
		return nil, fmt.Errorf("session %s: %w", sub.JobID, domain.ErrDuplicateOperation)
	}
	return s.startLocked(sub)
}

func (s *Sessions) startLocked(sub *domain.Submission) (*Controller, error) {
	c := NewController(s.deps)
	for _, fn := range s.observe {
		fn(c)
	}
	c.OnComplete(func(*domain.GenerationResult) { s.scheduleEviction(sub.JobID, c) })
	c.OnError(func(error) { s.scheduleEviction(sub.JobID, c) })

	if err := c.Start(s.root, sub); err != nil {
		return nil, err
	}
	s.sessions[sub.JobID] = c
	s.logger.Info().Str("job_id", sub.JobID).Msg("generation: session started")
	return c, nil
}

// Get returns the live session for jobID.
func (s *Sessions) Get(jobID string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[jobID]
	return c, ok
}

// Retry restarts a failed session. When the session is no longer in memory a
// fresh session is started from the stored submission, but only if the stored
// status is a failure.
func (s *Sessions) Retry(ctx context.Context, jobID string) (*Controller, error) {
	s.mu.Lock()
	c, ok := s.sessions[jobID]
	s.mu.Unlock()
	if ok {
		if err := c.Retry(s.root); err != nil {
			return nil, err
		}
		s.logger.Info().Str("job_id", jobID).Msg("generation: session retried")
		return c, nil
	}

	if s.source == nil {
		return nil, fmt.Errorf("session %s: %w", jobID, domain.ErrNotFound)
	}
	rec, err := s.source.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !rec.Status.Failed() {
		return nil, fmt.Errorf("retry %s from stored status %q: %w", jobID, rec.Status, domain.ErrInvalidTransition)
	}
	sub, err := s.source.GetSubmission(ctx, jobID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[jobID]; ok {
		return nil, fmt.Errorf("session %s: %w", jobID, domain.ErrDuplicateOperation)
	}
	return s.startLocked(sub)
}

// Cancel stops and forgets the session for jobID. It reports whether one existed.
func (s *Sessions) Cancel(jobID string) bool {
	s.mu.Lock()
	c, ok := s.sessions[jobID]
	delete(s.sessions, jobID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.Cancel()
	s.logger.Info().Str("job_id", jobID).Msg("generation: session cancelled")
	return true
}

// Len returns the number of sessions in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown cancels every session.
func (s *Sessions) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()
	for _, c := range sessions {
		c.Cancel()
	}
}

func (s *Sessions) scheduleEviction(jobID string, c *Controller) {
	time.AfterFunc(s.ttl, func() {
		switch c.Snapshot().Phase {
		case domain.PhaseComplete, domain.PhaseFailed:
		default:
			return
		}
		s.mu.Lock()
		if s.sessions[jobID] == c {
			delete(s.sessions, jobID)
		}
		s.mu.Unlock()
	})
}
