package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storystudio/internal/domain"
	"storystudio/internal/generation"
)

// EventType names the SSE event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a progress notification for one job. JobID doubles as the channel.
type Event struct {
	JobID     string                   `json:"storyId"`
	Type      EventType                `json:"type"`
	Phase     domain.Phase             `json:"phase"`
	Status    domain.JobStatus         `json:"status,omitempty"`
	StepID    string                   `json:"currentStepId,omitempty"`
	StepLabel string                   `json:"currentStep,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Result    *domain.GenerationResult `json:"result,omitempty"`
}

// Publisher fans events out to subscribers, locally or across replicas.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// FromSnapshot converts a controller snapshot into an event of the matching type.
func FromSnapshot(s generation.Snapshot) Event {
	ev := Event{
		JobID:     s.JobID,
		Type:      EventProgress,
		Phase:     s.Phase,
		Status:    s.Status,
		StepID:    s.StepID,
		StepLabel: s.StepLabel,
		Error:     s.Error,
	}
	switch s.Phase {
	case domain.PhaseComplete:
		ev.Type = EventComplete
		ev.Result = s.Result
	case domain.PhaseFailed:
		ev.Type = EventError
	}
	return ev
}

// Attach publishes every state change of c. Terminal events carry the
// snapshot taken after the result or error was recorded.
func Attach(c *generation.Controller, pub Publisher, logger zerolog.Logger) {
	c.OnProgressChange(func(s generation.Snapshot) {
		if s.Phase == domain.PhaseComplete || s.Phase == domain.PhaseFailed {
			return
		}
		publish(pub, logger, FromSnapshot(s))
	})
	c.OnComplete(func(*domain.GenerationResult) {
		publish(pub, logger, FromSnapshot(c.Snapshot()))
	})
	c.OnError(func(error) {
		publish(pub, logger, FromSnapshot(c.Snapshot()))
	})
}

func publish(pub Publisher, logger zerolog.Logger, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).Str("job_id", ev.JobID).Str("type", string(ev.Type)).Msg("realtime: publish failed")
	}
}
