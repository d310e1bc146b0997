package generation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"storystudio/internal/domain"
)

// ControllerDeps are the collaborators of a Controller.
type ControllerDeps struct {
	Trigger   Trigger
	Poller    *Poller
	Assembler *Assembler
	Logger    zerolog.Logger
}

// Snapshot is a point-in-time view of a generation session.
type Snapshot struct {
	JobID     string                   `json:"storyId"`
	Phase     domain.Phase             `json:"phase"`
	Status    domain.JobStatus         `json:"status,omitempty"`
	StepID    string                   `json:"currentStepId,omitempty"`
	StepLabel string                   `json:"currentStep,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Attempt   int                      `json:"attempt"`
	Result    *domain.GenerationResult `json:"result,omitempty"`
}

// Controller drives one job through trigger, polling and assembly:
//
//	idle -> triggering -> polling -> assembling -> complete
//	polling|assembling -> failed -> triggering (Retry)
//
// Callbacks run on the attempt goroutine, one at a time and in poll order.
// A callback may call Cancel.
type Controller struct {
	deps ControllerDeps

	mu        sync.Mutex
	parent    context.Context
	sub       *domain.Submission
	phase     domain.Phase
	status    domain.JobStatus
	stepID    string
	label     string
	err       error
	result    *domain.GenerationResult
	attempt   int
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool

	cbMu       sync.Mutex
	onProgress []func(Snapshot)
	onComplete []func(*domain.GenerationResult)
	onError    []func(error)

	// closed is checked before every callback invocation.
	closed atomic.Bool
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewController returns an idle controller.
func NewController(deps ControllerDeps) *Controller {
	return &Controller{
		deps:  deps,
		phase: domain.PhaseIdle,
		done:  closedDone,
	}
}

// OnProgressChange registers fn for every phase change and poll observation.
func (c *Controller) OnProgressChange(fn func(Snapshot)) {
	c.cbMu.Lock()
	c.onProgress = append(c.onProgress, fn)
	c.cbMu.Unlock()
}

// OnComplete registers fn for the assembled result.
func (c *Controller) OnComplete(fn func(*domain.GenerationResult)) {
	c.cbMu.Lock()
	c.onComplete = append(c.onComplete, fn)
	c.cbMu.Unlock()
}

// OnError registers fn for attempt failures.
func (c *Controller) OnError(fn func(error)) {
	c.cbMu.Lock()
	c.onError = append(c.onError, fn)
	c.cbMu.Unlock()
}

// Start begins the first attempt for sub and returns immediately. ctx bounds
// the whole session, not just this call.
func (c *Controller) Start(ctx context.Context, sub *domain.Submission) error {
	if sub == nil || sub.JobID == "" {
		return fmt.Errorf("start generation: submission with job id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseIdle || c.cancelled {
		return fmt.Errorf("start %s: %w", sub.JobID, domain.ErrDuplicateOperation)
	}
	c.parent = ctx
	c.sub = sub
	c.beginLocked()
	return nil
}

// Retry restarts a failed session with the original submission.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseFailed || c.cancelled {
		return fmt.Errorf("retry from %s: %w", c.phase, domain.ErrInvalidTransition)
	}
	if ctx != nil {
		c.parent = ctx
	}
	c.beginLocked()
	return nil
}

func (c *Controller) beginLocked() {
	parent := c.parent
	if parent == nil {
		parent = context.Background()
	}
	attemptCtx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.attempt++
	c.phase = domain.PhaseTriggering
	c.status = ""
	c.stepID = ""
	c.label = ""
	c.err = nil
	c.result = nil

	go c.run(attemptCtx, c.sub, c.done)
}

// Cancel aborts the running attempt. Once Cancel returns no further callback
// starts, and the controller accepts no further Start or Retry. A callback
// already running when Cancel is called from another goroutine may finish.
func (c *Controller) Cancel() {
	c.closed.Store(true)
	c.mu.Lock()
	c.cancelled = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when the current attempt goroutine exits.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Submission returns the submission the session was started with.
func (c *Controller) Submission() *domain.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:     c.phase,
		Status:    c.status,
		StepID:    c.stepID,
		StepLabel: c.label,
		Attempt:   c.attempt,
		Result:    c.result,
	}
	if c.sub != nil {
		s.JobID = c.sub.JobID
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

func (c *Controller) run(ctx context.Context, sub *domain.Submission, done chan struct{}) {
	defer close(done)
	log := c.deps.Logger.With().Str("job_id", sub.JobID).Logger()

	c.emitProgress()
	if ctx.Err() != nil {
		return
	}

	c.deps.Trigger.Fire(ctx, sub)
	c.setPhase(domain.PhasePolling)
	c.emitProgress()

	var last *domain.StatusRecord
	outcome, err := c.deps.Poller.Poll(ctx, sub.JobID, func(o Observation) {
		last = o.Record
		c.mu.Lock()
		c.status = o.Status
		c.stepID = o.StepID
		c.label = o.Label
		c.mu.Unlock()
		c.emitProgress()
	})
	log.Debug().Str("outcome", outcome.String()).Msg("generation: polling finished")

	switch outcome {
	case OutcomeCancelled:
		return
	case OutcomeCompleted:
	default:
		c.fail(log, err)
		return
	}

	c.setPhase(domain.PhaseAssembling)
	c.emitProgress()

	var base *domain.GenerationResult
	if last != nil {
		base, err = DecodeBase(last.Result)
		if err != nil {
			log.Warn().Err(err).Msg("generation: stored result unreadable, rebuilding from assets")
			base = nil
		}
	}
	result, err := c.deps.Assembler.Assemble(ctx, sub.JobID, base)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.fail(log, err)
		return
	}
	if result.Title == "" {
		result.Title = domain.ExtractTitle(sub.StoryText)
	}

	c.mu.Lock()
	c.phase = domain.PhaseComplete
	c.result = result
	c.mu.Unlock()
	log.Info().Int("pages", result.Metadata.PageCount).Msg("generation: complete")

	c.emitProgress()
	for _, fn := range c.completeCallbacks() {
		if c.closed.Load() {
			return
		}
		fn(result)
	}
}

// fail moves the session to failed. Store errors are reported with the generic
// store message; remote failures and timeouts keep their own text.
func (c *Controller) fail(log zerolog.Logger, err error) {
	public := err
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		public = domain.ErrStoreUnavailable
		log.Error().Err(err).Msg("generation: job store read failed")
	case errors.Is(err, domain.ErrGenerationTimedOut):
		log.Warn().Err(err).Msg("generation: timed out")
	case err == nil:
		public = domain.ErrGenerationFailed
		log.Warn().Msg("generation: failed")
	default:
		log.Warn().Err(err).Msg("generation: failed")
	}

	c.mu.Lock()
	c.phase = domain.PhaseFailed
	c.err = public
	c.mu.Unlock()

	c.emitProgress()
	for _, fn := range c.errorCallbacks() {
		if c.closed.Load() {
			return
		}
		fn(public)
	}
}

func (c *Controller) setPhase(p domain.Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) emitProgress() {
	for _, fn := range c.progressCallbacks() {
		if c.closed.Load() {
			return
		}
		fn(c.Snapshot())
	}
}

func (c *Controller) progressCallbacks() []func(Snapshot) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return slices.Clone(c.onProgress)
}

func (c *Controller) completeCallbacks() []func(*domain.GenerationResult) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return slices.Clone(c.onComplete)
}

func (c *Controller) errorCallbacks() []func(error) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return slices.Clone(c.onError)
}
